package textslabs

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/kekelp/textslabs/internal/gpu"
)

// frameResources holds one frame's GPU-side buffers and bind groups.
// They are rebuilt on every LoadToGPU because the instance data, and
// possibly the atlas texture views, change between frames.
type frameResources struct {
	paramsBuf  hal.Buffer
	quadBuf    hal.Buffer
	ellipseBuf hal.Buffer
	shapeBuf   hal.Buffer

	quadBind         hal.BindGroup
	shapeAtlasBind   hal.BindGroup
	shapeStorageBind hal.BindGroup

	quadCount  uint32
	shapeCount uint32
	useShapes  bool
}

func (f *frameResources) destroy(device hal.Device) {
	if f.shapeStorageBind != nil {
		device.DestroyBindGroup(f.shapeStorageBind)
		f.shapeStorageBind = nil
	}
	if f.shapeAtlasBind != nil {
		device.DestroyBindGroup(f.shapeAtlasBind)
		f.shapeAtlasBind = nil
	}
	if f.quadBind != nil {
		device.DestroyBindGroup(f.quadBind)
		f.quadBind = nil
	}
	if f.shapeBuf != nil {
		device.DestroyBuffer(f.shapeBuf)
		f.shapeBuf = nil
	}
	if f.ellipseBuf != nil {
		device.DestroyBuffer(f.ellipseBuf)
		f.ellipseBuf = nil
	}
	if f.quadBuf != nil {
		device.DestroyBuffer(f.quadBuf)
		f.quadBuf = nil
	}
	if f.paramsBuf != nil {
		device.DestroyBuffer(f.paramsBuf)
		f.paramsBuf = nil
	}
}

// padEncoded returns data, or one zeroed record when the list encoded
// to nothing. Buffers and storage bindings must have non-zero size even
// when the frame has no records of that kind.
func padEncoded(data []byte, stride int) []byte {
	if len(data) != 0 {
		return data
	}
	return make([]byte, stride)
}

// buildFrameLocked encodes the frame's records and creates the buffers
// and bind groups for the pipeline the frame will render through. The
// quad buffer carries both Vertex and Storage usage: the quad pipeline
// streams it per instance, the shape pipeline indexes it as raw words.
func (r *Renderer) buildFrameLocked() (*frameResources, error) {
	f := &frameResources{
		quadCount:  uint32(len(r.quads)),
		shapeCount: uint32(len(r.shapes)),
		useShapes:  r.hasEllipses,
	}

	fail := func(err error) (*frameResources, error) {
		f.destroy(r.device)
		return nil, err
	}

	paramsBuf, err := gpu.CreateAndUploadBuffer(r.device, r.queue, "params_uniform",
		EncodeParams(r.params),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fail(fmt.Errorf("textslabs: params buffer: %w", err))
	}
	f.paramsBuf = paramsBuf

	quadBuf, err := gpu.CreateAndUploadBuffer(r.device, r.queue, "quad_instances",
		padEncoded(EncodeQuads(r.quads), QuadStride),
		gputypes.BufferUsageVertex|gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fail(fmt.Errorf("textslabs: quad buffer: %w", err))
	}
	f.quadBuf = quadBuf

	if !f.useShapes {
		quadBind, err := r.quadPipe.BindGroup(f.paramsBuf, r.maskTex, r.colorTex)
		if err != nil {
			return fail(fmt.Errorf("textslabs: quad bind group: %w", err))
		}
		f.quadBind = quadBind
		return f, nil
	}

	ellipseData := padEncoded(EncodeEllipses(r.ellipses), EllipseStride)
	ellipseBuf, err := gpu.CreateAndUploadBuffer(r.device, r.queue, "ellipse_storage",
		ellipseData,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fail(fmt.Errorf("textslabs: ellipse buffer: %w", err))
	}
	f.ellipseBuf = ellipseBuf

	shapeBuf, err := gpu.CreateAndUploadBuffer(r.device, r.queue, "shape_instances",
		padEncoded(EncodeShapes(r.shapes), ShapeStride),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fail(fmt.Errorf("textslabs: shape buffer: %w", err))
	}
	f.shapeBuf = shapeBuf

	atlasBind, err := r.shapePipe.AtlasBindGroup(f.paramsBuf, r.maskTex, r.colorTex)
	if err != nil {
		return fail(fmt.Errorf("textslabs: shape atlas bind group: %w", err))
	}
	f.shapeAtlasBind = atlasBind

	quadBytes := len(r.quads) * QuadStride
	if quadBytes == 0 {
		quadBytes = QuadStride
	}
	storageBind, err := r.shapePipe.StorageBindGroup(f.ellipseBuf, len(ellipseData), f.quadBuf, quadBytes)
	if err != nil {
		return fail(fmt.Errorf("textslabs: shape storage bind group: %w", err))
	}
	f.shapeStorageBind = storageBind

	return f, nil
}
