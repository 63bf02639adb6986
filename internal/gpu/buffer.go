package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CreateAndUploadBuffer creates a GPU buffer sized to data and uploads it.
func CreateAndUploadBuffer(
	device hal.Device,
	queue hal.Queue,
	label string,
	data []byte,
	usage gputypes.BufferUsage,
) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	queue.WriteBuffer(buf, 0, data)
	return buf, nil
}
