package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// shapeInstanceStride is the byte stride per instance in the shape
// pipeline: kind (u32) + offset (u32).
const shapeInstanceStride = 8

// ShapePipeline renders the multiplexed instance stream: each instance
// is a (kind, offset) pair dispatching into read-only storage
// collections of ellipses and packed quad records.
//
// Group 0 is the same atlas layout as QuadPipeline so text quads
// composite identically; group 1 holds the two storage collections.
type ShapePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	atlasLayout   hal.BindGroupLayout
	storageLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
	sampler       hal.Sampler
}

// NewShapePipeline compiles the shape shader and creates the render
// pipeline targeting the given surface format.
func NewShapePipeline(device hal.Device, queue hal.Queue, targetFormat gputypes.TextureFormat) (*ShapePipeline, error) {
	p := &ShapePipeline{device: device, queue: queue}

	shader, err := newShaderModule(device, "shape_shader", shapeShaderSource)
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("compile shape shader: %w", err)
	}
	p.shader = shader

	atlasLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "shape_atlas_layout",
		Entries: atlasBindLayoutEntries(),
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create shape atlas layout: %w", err)
	}
	p.atlasLayout = atlasLayout

	// Binding 0: ellipse records, binding 1: raw quad words. Both are
	// read in the vertex stage for expansion and untouched afterwards.
	storageLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "shape_storage_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create shape storage layout: %w", err)
	}
	p.storageLayout = storageLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "shape_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.atlasLayout, p.storageLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create shape pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := newAtlasSampler(device, "shape_sampler")
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "shape_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    shapeInstanceLayout(),
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
		return nil, fmt.Errorf("create shape pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// AtlasBindGroup builds the per-frame group-0 bind group, identical in
// shape to QuadPipeline's.
func (p *ShapePipeline) AtlasBindGroup(paramsBuf hal.Buffer, mask, color *AtlasTextures) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "shape_atlas_bind",
		Layout:  p.atlasLayout,
		Entries: atlasBindEntries(paramsBuf, mask, color, p.sampler),
	})
}

// StorageBindGroup builds the per-frame group-1 bind group over the
// ellipse and quad storage buffers.
func (p *ShapePipeline) StorageBindGroup(ellipses hal.Buffer, ellipseBytes int, quads hal.Buffer, quadBytes int) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "shape_storage_bind",
		Layout: p.storageLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: ellipses.NativeHandle(), Offset: 0, Size: uint64(ellipseBytes),
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: quads.NativeHandle(), Offset: 0, Size: uint64(quadBytes),
			}},
		},
	})
}

// RecordDraws records the multiplexed instanced draw into an existing
// render pass.
func (p *ShapePipeline) RecordDraws(rp hal.RenderPassEncoder, atlasBind, storageBind hal.BindGroup, instances hal.Buffer, instanceCount uint32) {
	if instanceCount == 0 {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, atlasBind, nil)
	rp.SetBindGroup(1, storageBind, nil)
	rp.SetVertexBuffer(0, instances, 0)
	rp.Draw(4, instanceCount, 0, 0)
}

// Destroy releases all pipeline resources in reverse creation order.
// Safe to call multiple times or on a partially constructed pipeline.
func (p *ShapePipeline) Destroy() {
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
	if p.storageLayout != nil {
		p.device.DestroyBindGroupLayout(p.storageLayout)
		p.storageLayout = nil
	}
	if p.atlasLayout != nil {
		p.device.DestroyBindGroupLayout(p.atlasLayout)
		p.atlasLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// shapeInstanceLayout returns the vertex buffer layout for the shape
// pipeline. Matches ShapeInput in shape.wgsl.
func shapeInstanceLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: shapeInstanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUint32x2, Offset: 0, ShaderLocation: 0}, // kind, offset
			},
		},
	}
}
