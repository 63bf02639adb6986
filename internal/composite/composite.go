// Package composite is the reference implementation of the pipeline's
// vertex and fragment stage logic: quad expansion with clip intersection
// and UV remapping, content-type compositing with sRGB handling, edge
// fades, and the ellipse/text-quad shape multiplexer.
//
// The WGSL shaders under internal/gpu/shaders carry the same logic for
// the GPU path; this package keeps it testable and drives the software
// renderer. All arithmetic is float32 to mirror shader precision.
package composite

// Instance flag-field layout, matching the packed record contract:
// low 4 bits content type, bit 4 scalar fade, bits 5..8 per-edge fades.
const (
	contentMask  = 0
	contentColor = 1
	contentSolid = 2

	flagScalarFade = 1 << 4

	fadeLeft   = 1 << 5
	fadeRight  = 1 << 6
	fadeTop    = 1 << 7
	fadeBottom = 1 << 8
)

func contentTypeOf(flags uint32) uint32 { return flags & 0xF }

// Quad is one decoded instance record with all packed fields already
// split into shader-visible scalars.
type Quad struct {
	// X, Y is the unclipped top-left corner in pixel space.
	X, Y float32

	// Width, Height is the unclipped quad size in pixels.
	Width, Height float32

	// U, V is the atlas-page-local UV origin in texels.
	U, V float32

	// Color is the instance color as normalized straight-alpha RGBA,
	// sRGB-encoded on the color channels.
	Color [4]float32

	Depth float32
	Flags uint32
	Page  uint8

	// Clip rectangle in pixel space, right/bottom exclusive.
	ClipX, ClipY, ClipRight, ClipBottom float32
}

// Params mirrors the per-frame uniform block.
type Params struct {
	Width, Height float32
	SRGBSurface   bool
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
