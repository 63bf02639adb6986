package textslabs

import (
	"encoding/binary"
	"math"
)

// ShapeKind discriminates the primitive type an instance represents in the
// multiplexed (megashader) pipeline.
type ShapeKind uint32

const (
	// ShapeEllipse draws an anti-aliased ellipse from the ellipse storage
	// collection; no atlas access.
	ShapeEllipse ShapeKind = 0

	// ShapeTextQuad draws a full instance record from the quad storage
	// collection, with the complete quad-expansion and compositing logic.
	ShapeTextQuad ShapeKind = 1
)

// String returns a human-readable name for the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case ShapeEllipse:
		return "Ellipse"
	case ShapeTextQuad:
		return "TextQuad"
	default:
		return "Unknown"
	}
}

// Shape is one record of the multiplexed pipeline's per-draw instance
// stream. It carries only a shape-kind tag and an offset into the
// kind-appropriate read-only storage collection; the heavy per-shape fields
// live in those collections.
//
// An unrecognized Kind is defined behavior: the vertex stage emits a
// solid-magenta debug quad instead of failing.
type Shape struct {
	Kind   ShapeKind
	Offset uint32
}

// ShapeStride is the byte size of one encoded Shape record:
// kind (u32) + offset (u32).
const ShapeStride = 8

// EncodeShapes serializes the instance stream for the multiplexed pipeline.
func EncodeShapes(shapes []Shape) []byte {
	if len(shapes) == 0 {
		return nil
	}
	buf := make([]byte, len(shapes)*ShapeStride)
	off := 0
	for _, s := range shapes {
		binary.LittleEndian.PutUint32(buf[off:], uint32(s.Kind))
		binary.LittleEndian.PutUint32(buf[off+4:], s.Offset)
		off += ShapeStride
	}
	return buf
}

// Ellipse is one record of the ellipse storage collection: an axis-aligned
// ellipse given by center and full extents, filled with a solid color.
// Unlike Quad it is not bit-packed; ellipses are few and the float form
// keeps the fragment stage's distance math direct.
type Ellipse struct {
	// X, Y is the ellipse center in pixel space.
	X, Y float32

	// W, H are the full horizontal and vertical extents in pixels.
	W, H float32

	// Color is the fill color as normalized RGBA.
	Color [4]float32
}

// EllipseStride is the byte size of one encoded Ellipse record:
// center (2 x f32) + extents (2 x f32) + color (4 x f32).
const EllipseStride = 32

// EncodeEllipses serializes the ellipse storage collection.
func EncodeEllipses(ellipses []Ellipse) []byte {
	if len(ellipses) == 0 {
		return nil
	}
	buf := make([]byte, len(ellipses)*EllipseStride)
	off := 0
	for i := range ellipses {
		e := &ellipses[i]
		binary.LittleEndian.PutUint32(buf[off+0:], math.Float32bits(e.X))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(e.Y))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(e.W))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(e.H))
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(buf[off+16+c*4:], math.Float32bits(e.Color[c]))
		}
		off += EllipseStride
	}
	return buf
}
