package scopeplot

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/scopeplot/scopeplot/shaders"
)

// Config tunes a Renderer at construction. The zero value gives a
// single-sample pipeline with DefaultMaxPoints capacity and no logging.
type Config struct {
	// SampleCount is the MSAA sample count for the pipeline and the
	// managed render targets. 0 and 1 both mean multisampling off.
	// In pass-injection mode it must match the host's render pass.
	SampleCount uint32

	// MaxPoints is the vertex buffer capacity. 0 means DefaultMaxPoints.
	MaxPoints int

	Logger Logger
}

// Renderer owns the fixed plot pipeline and its GPU resources: one
// uniform buffer for the bounds transform, one vertex buffer allocated at
// full capacity up front, the bind group tying the uniform to the
// pipeline, and the offscreen targets the self-submission path draws
// into. Everything except the targets is created once in New and lives
// until Release.
//
// A Renderer is single-threaded per frame: the host guarantees only one
// frame's prepare/paint runs at a time on the device and queue.
type Renderer struct {
	pipeline      *wgpu.RenderPipeline
	bindGroup     *wgpu.BindGroup
	uniformBuffer *wgpu.Buffer
	vertexBuffer  *wgpu.Buffer
	vertexCount   uint32
	maxPoints     int

	targets     *RenderTargets
	sampleCount uint32

	log Logger
}

// New builds the plot pipeline against the given target color format.
// The format must match whatever the draw ends up in: the host surface
// format in pass-injection mode, the offscreen targets otherwise (they
// are created with the same format here). A nil device or a pipeline
// construction failure is fatal for the session; the caller must not
// register a plot for it.
func New(device *wgpu.Device, format wgpu.TextureFormat, cfg Config) (*Renderer, error) {
	if device == nil {
		return nil, errors.New("plot renderer requires a device")
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	if cfg.Logger == nil {
		cfg.Logger = NewNopLogger()
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "PlotShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.PlotWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("create plot shader: %w", err)
	}

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "PlotBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   uint64(unsafe.Sizeof(boundsUniform{})),
					HasDynamicOffset: false,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create plot bind group layout: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("create plot pipeline layout: %w", err)
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "PlotPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x2,
							Offset:         0,
							ShaderLocation: 0,
						},
						{
							Format:         wgpu.VertexFormatFloat32x2,
							Offset:         8,
							ShaderLocation: 1,
						},
						{
							Format:         wgpu.VertexFormatFloat32x4,
							Offset:         16,
							ShaderLocation: 2,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: cfg.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create plot pipeline: %w", err)
	}

	uniformBuffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "PlotUniforms",
		Contents: wgpu.ToBytes([]boundsUniform{{XBounds: [2]float32{-1, 1}, YBounds: [2]float32{-1, 1}}}),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create plot uniform buffer: %w", err)
	}

	vertexBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PlotVertexBuffer",
		Size:  uint64(cfg.MaxPoints) * uint64(unsafe.Sizeof(Vertex{})),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create plot vertex buffer: %w", err)
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "PlotBindGroup",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  uniformBuffer,
				Size:    uint64(unsafe.Sizeof(boundsUniform{})),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create plot bind group: %w", err)
	}

	r := &Renderer{
		pipeline:      pipeline,
		bindGroup:     bindGroup,
		uniformBuffer: uniformBuffer,
		vertexBuffer:  vertexBuffer,
		maxPoints:     cfg.MaxPoints,
		targets:       NewRenderTargets(format, cfg.SampleCount, cfg.Logger),
		sampleCount:   cfg.SampleCount,
		log:           cfg.Logger,
	}

	// Stand-in targets so View is valid before the first frame reports a
	// real viewport size.
	if err := r.targets.EnsureSize(device, 1, 1); err != nil {
		return nil, err
	}
	return r, nil
}

// EnsureSize resizes the offscreen targets to the viewport reported by
// the host this frame. No-op while the size is unchanged.
func (r *Renderer) EnsureSize(device *wgpu.Device, width, height uint32) error {
	return r.targets.EnsureSize(device, width, height)
}

// UpdateBounds rewrites the bounds uniform. Callers invoke it every frame
// without a dirty check.
func (r *Renderer) UpdateBounds(queue *wgpu.Queue, b Bounds) error {
	if err := queue.WriteBuffer(r.uniformBuffer, 0, wgpu.ToBytes([]boundsUniform{b.uniform()})); err != nil {
		return fmt.Errorf("write plot uniforms: %w", err)
	}
	return nil
}

// UpdateVertices replaces the GPU-resident vertex data when dirty is
// true; a clean frame is a strict no-op that leaves the previous upload
// and count untouched. The caller owns the dirty flag and sets it exactly
// once per data change. Sequences beyond capacity are truncated with a
// diagnostic rather than dropped silently or aborted.
//
// Uploads are always whole-buffer from offset 0. A ring-buffer scheme
// that uploads only appended vertices would help streaming time-series
// workloads, but no current caller appends incrementally.
func (r *Renderer) UpdateVertices(queue *wgpu.Queue, vertices []Vertex, dirty bool) error {
	if !dirty {
		return nil
	}
	vertices = truncateToCapacity(vertices, r.maxPoints, r.log)
	r.vertexCount = uint32(len(vertices))
	if len(vertices) == 0 {
		return nil
	}
	if err := queue.WriteBuffer(r.vertexBuffer, 0, wgpu.ToBytes(vertices)); err != nil {
		return fmt.Errorf("write plot vertices: %w", err)
	}
	return nil
}

func truncateToCapacity(vertices []Vertex, maxPoints int, log Logger) []Vertex {
	if len(vertices) <= maxPoints {
		return vertices
	}
	log.Warnf("plot series has %d vertices, truncating to capacity %d", len(vertices), maxPoints)
	return vertices[:maxPoints]
}

// Draw records the plot into an already-open render pass: bind pipeline,
// vertex buffer and uniform bind group, then a single non-indexed draw of
// [0, vertexCount). Stale data past vertexCount is never read. The pass
// must target the format and sample count the Renderer was built with.
func (r *Renderer) Draw(pass *wgpu.RenderPassEncoder) {
	if r.vertexCount == 0 {
		return
	}
	pass.SetPipeline(r.pipeline)
	pass.SetVertexBuffer(0, r.vertexBuffer, 0, r.vertexBuffer.GetSize())
	pass.SetBindGroup(0, r.bindGroup, nil)
	pass.Draw(r.vertexCount, 1, 0, 0)
}

// RenderOffscreen draws into the managed targets under the Renderer's own
// command buffer: clear to transparent, Draw, resolve to the displayed
// texture when multisampling, submit. For hosts that expose no render
// pass of their own; View hands the result back afterwards.
func (r *Renderer) RenderOffscreen(device *wgpu.Device, queue *wgpu.Queue) error {
	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create plot command encoder: %w", err)
	}
	defer encoder.Release()

	view, resolveTarget := r.targets.attachment()
	attachment := wgpu.RenderPassColorAttachment{
		View:       view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
	}
	if resolveTarget != nil {
		attachment.ResolveTarget = resolveTarget
		attachment.StoreOp = wgpu.StoreOpDiscard
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	defer pass.Release()

	r.Draw(pass)
	if err := pass.End(); err != nil {
		return fmt.Errorf("end plot render pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish plot command buffer: %w", err)
	}
	defer cmd.Release()

	queue.Submit(cmd)
	return nil
}

// View returns the displayable plot texture view for registration in the
// host's texture table. Refresh the registration after each frame's draw
// to pick up target recreation on resize.
func (r *Renderer) View() *wgpu.TextureView { return r.targets.View() }

// Targets exposes the managed render targets, for hosts that open their
// own pass onto the plot texture.
func (r *Renderer) Targets() *RenderTargets { return r.targets }

func (r *Renderer) VertexCount() uint32 { return r.vertexCount }

func (r *Renderer) MaxPoints() int { return r.maxPoints }

func (r *Renderer) Release() {
	if r.targets != nil {
		r.targets.Release()
	}
	if r.bindGroup != nil {
		r.bindGroup.Release()
		r.bindGroup = nil
	}
	if r.vertexBuffer != nil {
		r.vertexBuffer.Release()
		r.vertexBuffer = nil
	}
	if r.uniformBuffer != nil {
		r.uniformBuffer.Release()
		r.uniformBuffer = nil
	}
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
}
