package panel

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/scopeplot/scopeplot/shaders"
)

// Blit composites a sampled texture into an axis-aligned rectangle of
// the window. The plot renders with straight alpha onto transparent
// black, which leaves premultiplied color in the texture, so the quad
// blends with One / OneMinusSrcAlpha.
type Blit struct {
	pipeline      *wgpu.RenderPipeline
	sampler       *wgpu.Sampler
	uniformBuffer *wgpu.Buffer
	bindGroup     *wgpu.BindGroup
	boundView     *wgpu.TextureView
}

func NewBlit(device *wgpu.Device, format wgpu.TextureFormat, sampleCount uint32) (*Blit, error) {
	if sampleCount == 0 {
		sampleCount = 1
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BlitShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("create blit shader: %w", err)
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "BlitPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create blit pipeline: %w", err)
	}

	uniformBuffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "BlitRect",
		Contents: wgpu.ToBytes([]float32{-1, -1, 1, 1}),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create blit uniforms: %w", err)
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create blit sampler: %w", err)
	}

	return &Blit{
		pipeline:      pipeline,
		sampler:       sampler,
		uniformBuffer: uniformBuffer,
	}, nil
}

// Prepare points the blit at view and the destination rectangle. The
// bind group is rebuilt only when the view changes, which happens when
// render targets are recreated on resize.
func (b *Blit) Prepare(device *wgpu.Device, queue *wgpu.Queue, view *wgpu.TextureView, area Rect[int], screenW, screenH int) error {
	rect := rectToNDC(area, screenW, screenH)
	if err := queue.WriteBuffer(b.uniformBuffer, 0, wgpu.ToBytes(rect[:])); err != nil {
		return fmt.Errorf("upload blit rect: %w", err)
	}

	if view == b.boundView && b.bindGroup != nil {
		return nil
	}

	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.uniformBuffer, Size: uint64(unsafe.Sizeof([4]float32{}))},
			{Binding: 1, TextureView: view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create blit bind group: %w", err)
	}
	b.bindGroup = bindGroup
	b.boundView = view
	return nil
}

func (b *Blit) Paint(pass *wgpu.RenderPassEncoder) {
	if b.bindGroup == nil {
		return
	}
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.Draw(4, 1, 0, 0)
}

func (b *Blit) Release() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
}

// rectToNDC converts a pixel rectangle, origin top-left, into clip
// space corners (x0, y0) bottom-left and (x1, y1) top-right.
func rectToNDC(area Rect[int], screenW, screenH int) [4]float32 {
	w := float32(screenW)
	h := float32(screenH)
	x0 := float32(area.MinX)/w*2 - 1
	x1 := float32(area.MaxX)/w*2 - 1
	yTop := 1 - float32(area.MinY)/h*2
	yBottom := 1 - float32(area.MaxY)/h*2
	return [4]float32{x0, yBottom, x1, yTop}
}
