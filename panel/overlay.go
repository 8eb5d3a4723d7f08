package panel

import (
	"fmt"
	"image"
	"image/draw"
	"strings"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/scopeplot/scopeplot"
	"github.com/scopeplot/scopeplot/shaders"
)

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one run of text queued for the overlay. Position is in
// framebuffer pixels with the origin at the top-left corner.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

const (
	atlasSize      = 256
	shapeCacheSize = 128
)

// Overlay rasterizes a font into an alpha atlas once and turns queued
// text items into textured triangles each frame. Shaped vertex runs are
// memoized in an LRU keyed by the frame's full item list, so a HUD that
// only changes once a second costs one rebuild per change.
type Overlay struct {
	face   font.Face
	atlas  *image.Alpha
	glyphs map[rune]GlyphInfo
	items  []TextItem
	shaped *lru.Cache[string, []TextVertex]
	log    scopeplot.Logger

	pipeline     *wgpu.RenderPipeline
	bindGroup    *wgpu.BindGroup
	atlasTexture *wgpu.Texture
	atlasView    *wgpu.TextureView
	sampler      *wgpu.Sampler
	vertexBuffer *wgpu.Buffer
	vertexCount  uint32
}

// NewOverlay builds the glyph atlas for face on the CPU. A nil face
// selects the built-in 7x13 bitmap face, which keeps the overlay free
// of font files on disk.
func NewOverlay(face font.Face, log scopeplot.Logger) *Overlay {
	if face == nil {
		face = basicfont.Face7x13
	}
	if log == nil {
		log = scopeplot.NewNopLogger()
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := dr.Dx()
		h := dr.Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}

		if y+h >= atlasSize {
			log.Warnf("glyph atlas full, dropping %q and later glyphs", r)
			break
		}

		// maskp, not mask.Bounds().Min: bitmap faces hand out one
		// shared mask image for every glyph.
		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(dr.Min.X), float32(dr.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	shaped, _ := lru.New[string, []TextVertex](shapeCacheSize)

	return &Overlay{
		face:   face,
		atlas:  atlas,
		glyphs: glyphs,
		shaped: shaped,
		log:    log,
	}
}

// InitGPU uploads the atlas and builds the text pipeline. sampleCount
// must match the sample count of the pass the overlay paints into.
func (o *Overlay) InitGPU(device *wgpu.Device, queue *wgpu.Queue, format wgpu.TextureFormat, sampleCount uint32) error {
	if sampleCount == 0 {
		sampleCount = 1
	}

	w := o.atlas.Bounds().Dx()
	h := o.atlas.Bounds().Dy()

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "OverlayAtlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("create overlay atlas: %w", err)
	}
	o.atlasTexture = tex

	if err := queue.WriteTexture(tex.AsImageCopy(), o.atlas.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}); err != nil {
		return fmt.Errorf("upload overlay atlas: %w", err)
	}

	o.atlasView, err = tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create overlay atlas view: %w", err)
	}

	o.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create overlay sampler: %w", err)
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "OverlayShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		return fmt.Errorf("create overlay shader: %w", err)
	}

	o.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "OverlayPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(TextVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create overlay pipeline: %w", err)
	}

	o.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: o.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: o.atlasView},
			{Binding: 1, Sampler: o.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create overlay bind group: %w", err)
	}

	return nil
}

// Text queues a run for the current frame.
func (o *Overlay) Text(text string, x, y, scale float32, color [4]float32) {
	o.items = append(o.items, TextItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

// Prepare shapes the queued items and uploads them, then drops the
// queue so the next frame starts empty.
func (o *Overlay) Prepare(device *wgpu.Device, queue *wgpu.Queue, screenW, screenH int) error {
	defer func() { o.items = o.items[:0] }()

	o.vertexCount = 0
	if len(o.items) == 0 || screenW <= 0 || screenH <= 0 {
		return nil
	}

	vertices := o.shape(screenW, screenH)
	if len(vertices) == 0 {
		return nil
	}

	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(TextVertex{}))
	if o.vertexBuffer == nil || o.vertexBuffer.GetSize() < size {
		if o.vertexBuffer != nil {
			o.vertexBuffer.Release()
		}
		var err error
		o.vertexBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "OverlayVertexBuffer",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create overlay vertex buffer: %w", err)
		}
	}

	if err := queue.WriteBuffer(o.vertexBuffer, 0, wgpu.ToBytes(vertices)); err != nil {
		return fmt.Errorf("upload overlay vertices: %w", err)
	}
	o.vertexCount = uint32(len(vertices))
	return nil
}

// Paint records the overlay draw into an already begun pass.
func (o *Overlay) Paint(pass *wgpu.RenderPassEncoder) {
	if o.vertexCount == 0 || o.pipeline == nil || o.bindGroup == nil {
		return
	}
	pass.SetPipeline(o.pipeline)
	pass.SetBindGroup(0, o.bindGroup, nil)
	pass.SetVertexBuffer(0, o.vertexBuffer, 0, o.vertexBuffer.GetSize())
	pass.Draw(o.vertexCount, 1, 0, 0)
}

func (o *Overlay) shape(screenW, screenH int) []TextVertex {
	key := shapeKey(o.items, screenW, screenH)
	if cached, ok := o.shaped.Get(key); ok {
		return cached
	}
	vertices := o.BuildVertices(o.items, screenW, screenH)
	o.shaped.Add(key, vertices)
	return vertices
}

func shapeKey(items []TextItem, screenW, screenH int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d", screenW, screenH)
	for _, item := range items {
		fmt.Fprintf(&b, "|%s@%g,%g*%g#%g,%g,%g,%g",
			item.Text, item.Position[0], item.Position[1], item.Scale,
			item.Color[0], item.Color[1], item.Color[2], item.Color[3])
	}
	return b.String()
}

// BuildVertices lays out items in pixel space and emits two triangles
// per glyph in NDC. Item positions name the top-left corner of the
// first line; '\n' starts a new line.
func (o *Overlay) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(items)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := o.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}

			g, ok := o.glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2.0

			vertices = append(vertices,
				TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},

				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)

			posX += g.Adv * item.Scale
		}
	}

	return vertices
}

// MeasureText returns the pixel width and height text would occupy at
// the given scale.
func (o *Overlay) MeasureText(text string, scale float32) (float32, float32) {
	if o == nil {
		return 0, 0
	}

	metrics := o.face.Metrics()
	lineHeight := float32(metrics.Height.Ceil())

	maxW := float32(0)
	currentW := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if currentW > maxW {
				maxW = currentW
			}
			currentW = 0
			lines++
			continue
		}

		g, ok := o.glyphs[r]
		if !ok {
			continue
		}
		currentW += g.Adv * scale
	}

	if currentW > maxW {
		maxW = currentW
	}

	return maxW, lineHeight * scale * float32(lines)
}

func (o *Overlay) LineHeight(scale float32) float32 {
	if o == nil {
		return 0
	}
	return float32(o.face.Metrics().Height.Ceil()) * scale
}

// Atlas exposes the rasterized glyph sheet.
func (o *Overlay) Atlas() *image.Alpha {
	return o.atlas
}

func (o *Overlay) Release() {
	if o.vertexBuffer != nil {
		o.vertexBuffer.Release()
		o.vertexBuffer = nil
	}
	if o.bindGroup != nil {
		o.bindGroup.Release()
		o.bindGroup = nil
	}
	if o.pipeline != nil {
		o.pipeline.Release()
		o.pipeline = nil
	}
	if o.sampler != nil {
		o.sampler.Release()
		o.sampler = nil
	}
	if o.atlasView != nil {
		o.atlasView.Release()
		o.atlasView = nil
	}
	if o.atlasTexture != nil {
		o.atlasTexture.Release()
		o.atlasTexture = nil
	}
}
