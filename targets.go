package scopeplot

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// RenderTargets owns the offscreen color textures the plot draws into: a
// single-sample texture the host displays, plus a multisampled twin when
// built with a sample count above 1. Textures always match the most
// recently requested viewport size; a size change destroys and recreates
// them, nothing is resized in place.
type RenderTargets struct {
	format      wgpu.TextureFormat
	sampleCount uint32
	width       uint32
	height      uint32

	color     *wgpu.Texture
	colorView *wgpu.TextureView
	msaa      *wgpu.Texture
	msaaView  *wgpu.TextureView

	log Logger
}

func NewRenderTargets(format wgpu.TextureFormat, sampleCount uint32, log Logger) *RenderTargets {
	if sampleCount == 0 {
		sampleCount = 1
	}
	if log == nil {
		log = NewNopLogger()
	}
	return &RenderTargets{
		format:      format,
		sampleCount: sampleCount,
		log:         log,
	}
}

// EnsureSize recreates the textures when the requested viewport size
// differs from the recorded one. Zero dimensions are clamped to 1; UI
// relayout passes through degenerate sizes and must not fail here.
func (t *RenderTargets) EnsureSize(device *wgpu.Device, width, height uint32) error {
	width, height = clampExtent(width, height)
	if width == t.width && height == t.height {
		return nil
	}

	t.releaseTextures()
	t.width, t.height = 0, 0

	color, colorView, err := createColorTexture(device, t.format, 1, width, height)
	if err != nil {
		return fmt.Errorf("create plot texture %dx%d: %w", width, height, err)
	}
	t.color, t.colorView = color, colorView

	if t.sampleCount > 1 {
		msaa, msaaView, err := createColorTexture(device, t.format, t.sampleCount, width, height)
		if err != nil {
			t.releaseTextures()
			return fmt.Errorf("create multisampled plot texture %dx%d: %w", width, height, err)
		}
		t.msaa, t.msaaView = msaa, msaaView
	}

	t.width, t.height = width, height
	t.log.Debugf("plot targets resized to %dx%d", width, height)
	return nil
}

// View returns the view over the single-sample texture, the image the
// host displays. Valid from the first successful EnsureSize on.
func (t *RenderTargets) View() *wgpu.TextureView { return t.colorView }

// MSAAView returns the multisampled attachment view, nil when
// multisampling is off.
func (t *RenderTargets) MSAAView() *wgpu.TextureView { return t.msaaView }

func (t *RenderTargets) SampleCount() uint32 { return t.sampleCount }

func (t *RenderTargets) Size() (width, height uint32) { return t.width, t.height }

// attachment picks the color attachment for a pass onto these targets:
// under MSAA the pass draws into the multisampled texture and resolves
// into the displayed one.
func (t *RenderTargets) attachment() (view, resolveTarget *wgpu.TextureView) {
	if t.sampleCount > 1 {
		return t.msaaView, t.colorView
	}
	return t.colorView, nil
}

func (t *RenderTargets) Release() {
	t.releaseTextures()
	t.width, t.height = 0, 0
}

func (t *RenderTargets) releaseTextures() {
	if t.msaaView != nil {
		t.msaaView.Release()
		t.msaaView = nil
	}
	if t.msaa != nil {
		t.msaa.Release()
		t.msaa = nil
	}
	if t.colorView != nil {
		t.colorView.Release()
		t.colorView = nil
	}
	if t.color != nil {
		t.color.Release()
		t.color = nil
	}
}

func createColorTexture(device *wgpu.Device, format wgpu.TextureFormat, sampleCount, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PlotTexture",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, err
	}
	return texture, view, nil
}

func clampExtent(width, height uint32) (uint32, uint32) {
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	return width, height
}
