package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// quadInstanceStride is the byte stride per instance in the quad
// pipeline. Layout per instance:
//
//	pos        (vec2<i32>) = 8 bytes  (location 0)
//	dim        (u32)       = 4 bytes  (location 1)
//	uv         (u32)       = 4 bytes  (location 2)
//	color      (u32)       = 4 bytes  (location 3)
//	depth      (f32)       = 4 bytes  (location 4)
//	flags+page (u32)       = 4 bytes  (location 5)
//	clip       (vec2<u32>) = 8 bytes  (location 6)
//
// Total = 36 bytes per instance, matching the root package's encoder.
const quadInstanceStride = 36

// paramsUniformSize is the byte size of the shared Params uniform:
// screen_resolution (vec2<f32>) + srgb_surface (u32) + padding (u32).
const paramsUniformSize = 16

// QuadPipeline renders packed instance records as an instanced triangle
// strip: four vertices per instance, clip and compositing logic in the
// quad shader.
//
// Architecture:
//
//	the Renderer owns per-frame buffers (instances, params uniform)
//	QuadPipeline owns shader, layouts, pipeline, sampler
//	bind groups are created per frame (uniform + both atlases + sampler)
type QuadPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
}

// NewQuadPipeline compiles the quad shader and creates the render
// pipeline targeting the given surface format with premultiplied alpha
// blending.
func NewQuadPipeline(device hal.Device, queue hal.Queue, targetFormat gputypes.TextureFormat) (*QuadPipeline, error) {
	p := &QuadPipeline{device: device, queue: queue}

	shader, err := newShaderModule(device, "quad_shader", quadShaderSource)
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("compile quad shader: %w", err)
	}
	p.shader = shader

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "quad_bind_layout",
		Entries: atlasBindLayoutEntries(),
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create quad bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create quad pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := newAtlasSampler(device, "quad_sampler")
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "quad_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    quadInstanceLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create quad pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// BindGroup builds the per-frame bind group: params uniform, both atlas
// array textures, and the shared sampler. The caller owns the returned
// group and destroys it when the frame's resources are released.
func (p *QuadPipeline) BindGroup(paramsBuf hal.Buffer, mask, color *AtlasTextures) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "quad_bind",
		Layout:  p.bindLayout,
		Entries: atlasBindEntries(paramsBuf, mask, color, p.sampler),
	})
}

// RecordDraws records the instanced draw into an existing render pass.
// The pass and all buffers are owned by the caller.
func (p *QuadPipeline) RecordDraws(rp hal.RenderPassEncoder, bindGroup hal.BindGroup, instances hal.Buffer, instanceCount uint32) {
	if instanceCount == 0 {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, instances, 0)
	rp.Draw(4, instanceCount, 0, 0)
}

// Destroy releases all pipeline resources in reverse creation order.
// Safe to call multiple times or on a partially constructed pipeline.
func (p *QuadPipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// quadInstanceLayout returns the vertex buffer layout for the quad
// pipeline. Matches QuadInput in quad.wgsl.
func quadInstanceLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadInstanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatSint32x2, Offset: 0, ShaderLocation: 0},  // pos
				{Format: gputypes.VertexFormatUint32, Offset: 8, ShaderLocation: 1},    // dim
				{Format: gputypes.VertexFormatUint32, Offset: 12, ShaderLocation: 2},   // uv
				{Format: gputypes.VertexFormatUint32, Offset: 16, ShaderLocation: 3},   // color
				{Format: gputypes.VertexFormatFloat32, Offset: 20, ShaderLocation: 4},  // depth
				{Format: gputypes.VertexFormatUint32, Offset: 24, ShaderLocation: 5},   // flags+page
				{Format: gputypes.VertexFormatUint32x2, Offset: 28, ShaderLocation: 6}, // clip
			},
		},
	}
}

// atlasBindLayoutEntries is the group-0 layout shared by both pipelines:
//
//	Binding 0: Params (uniform buffer, vertex+fragment)
//	Binding 1: mask atlas (texture_2d_array, fragment)
//	Binding 2: color atlas (texture_2d_array, fragment)
//	Binding 3: sampler (fragment)
func atlasBindLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2DArray,
			},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2DArray,
			},
		},
		{
			Binding:    3,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
}

// atlasBindEntries builds the group-0 entries matching
// atlasBindLayoutEntries.
func atlasBindEntries(paramsBuf hal.Buffer, mask, color *AtlasTextures, sampler hal.Sampler) []gputypes.BindGroupEntry {
	return []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: paramsUniformSize,
		}},
		{Binding: 1, Resource: gputypes.TextureViewBinding{
			TextureView: mask.View().NativeHandle(),
		}},
		{Binding: 2, Resource: gputypes.TextureViewBinding{
			TextureView: color.View().NativeHandle(),
		}},
		{Binding: 3, Resource: gputypes.SamplerBinding{
			Sampler: sampler.NativeHandle(),
		}},
	}
}

// newAtlasSampler creates the shared atlas sampler. Glyph texels are
// drawn 1:1 so nearest filtering keeps mask coverage exact.
func newAtlasSampler(device hal.Device, label string) (hal.Sampler, error) {
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return sampler, nil
}
