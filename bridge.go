package scopeplot

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Frame is the host's per-frame input: the plot viewport in pixels and
// the visible data window its layout negotiated. The host computes both;
// the bridge performs no coordinate negotiation of its own.
type Frame struct {
	Width  uint32
	Height uint32
	Bounds Bounds
}

// FrameRenderer is the slice of Renderer the bridge drives once per
// frame. *Renderer implements it.
type FrameRenderer interface {
	EnsureSize(device *wgpu.Device, width, height uint32) error
	UpdateBounds(queue *wgpu.Queue, b Bounds) error
	UpdateVertices(queue *wgpu.Queue, vertices []Vertex, dirty bool) error
	Draw(pass *wgpu.RenderPassEncoder)
	RenderOffscreen(device *wgpu.Device, queue *wgpu.Queue) error
	View() *wgpu.TextureView
}

// Bridge adapts a per-frame paint request into the renderer's two-phase
// protocol. It carries across frames: the explicit renderer handle, a
// shared reference to the current vertex series, and the dirty flag.
// The data owner raises the flag by replacing the series; the bridge
// lowers it after one successful upload, so pan and zoom frames never
// re-send vertex data.
//
// Hosts with two-phase callbacks call Prepare then Paint. Hosts without
// pass injection call RenderOffscreen and display View.
type Bridge struct {
	renderer FrameRenderer
	series   *Series
	dirty    bool
}

func NewBridge(renderer FrameRenderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// SetSeries replaces the displayed series and marks it for upload on the
// next Prepare. A nil series clears the plot.
func (b *Bridge) SetSeries(s *Series) {
	b.series = s
	b.dirty = true
}

// Series returns the series currently referenced by the bridge.
func (b *Bridge) Series() *Series { return b.series }

// Dirty reports whether the next Prepare will re-upload vertex data.
func (b *Bridge) Dirty() bool { return b.dirty }

// Prepare runs the resource phase: resize targets to the frame's
// viewport, rewrite the bounds uniform, and re-upload vertices if the
// series changed since the last successful upload. Must run with
// exclusive device/queue access, before any render pass opens. On error
// the dirty flag survives, so the upload is retried next frame.
func (b *Bridge) Prepare(device *wgpu.Device, queue *wgpu.Queue, frame Frame) error {
	if err := b.renderer.EnsureSize(device, frame.Width, frame.Height); err != nil {
		return err
	}
	if err := b.renderer.UpdateBounds(queue, frame.Bounds); err != nil {
		return err
	}
	if err := b.renderer.UpdateVertices(queue, b.series.Vertices(), b.dirty); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// Paint records the draw into the host's open render pass. Nothing else;
// all resource work belongs to Prepare.
func (b *Bridge) Paint(pass *wgpu.RenderPassEncoder) {
	b.renderer.Draw(pass)
}

// RenderOffscreen is the single-phase fallback: Prepare, then draw and
// submit onto the renderer's own targets.
func (b *Bridge) RenderOffscreen(device *wgpu.Device, queue *wgpu.Queue, frame Frame) error {
	if err := b.Prepare(device, queue, frame); err != nil {
		return err
	}
	return b.renderer.RenderOffscreen(device, queue)
}

// View returns the displayable plot texture for the host's texture
// table.
func (b *Bridge) View() *wgpu.TextureView { return b.renderer.View() }
