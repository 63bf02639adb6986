package textslabs

import (
	"encoding/binary"
	"math"
)

// ParamsUniformSize is the byte size of the per-frame uniform buffer.
// Layout: screen_resolution (vec2<f32>) + srgb_surface (u32) + padding (u32).
const ParamsUniformSize = 16

// Params is the per-frame uniform block shared by all pipelines.
type Params struct {
	// ScreenWidth, ScreenHeight is the target surface size in pixels,
	// used by the vertex stage's NDC transform.
	ScreenWidth  float32
	ScreenHeight float32

	// SRGBSurface reports whether the destination surface is already
	// sRGB-aware. When false, the fragment stage converts sampled atlas
	// texels from sRGB to linear before blending.
	SRGBSurface bool
}

// EncodeParams serializes the uniform block into its 16-byte wire form.
func EncodeParams(p Params) []byte {
	buf := make([]byte, ParamsUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.ScreenWidth))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.ScreenHeight))
	if p.SRGBSurface {
		binary.LittleEndian.PutUint32(buf[8:12], 1)
	}
	// Bytes 12..15 are alignment padding and stay zero.
	return buf
}
