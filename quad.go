package textslabs

import (
	"encoding/binary"
	"math"
)

// ContentType selects how the fragment stage derives a quad's color.
// It occupies the low 4 bits of the flag field.
type ContentType uint32

const (
	// ContentMask samples the single-channel mask atlas and uses the texel
	// as an alpha multiplier on the instance color.
	ContentMask ContentType = 0

	// ContentColor samples the four-channel color atlas and multiplies the
	// texel component-wise with the instance color.
	ContentColor ContentType = 1

	// ContentSolid uses the instance color directly, with no atlas access.
	// Any content-type value other than ContentMask and ContentColor
	// renders as solid fill; ContentSolid is the canonical encoding.
	ContentSolid ContentType = 2
)

// String returns a human-readable name for the content type.
func (c ContentType) String() string {
	switch c {
	case ContentMask:
		return "Mask"
	case ContentColor:
		return "Color"
	case ContentSolid:
		return "Solid"
	default:
		return "Solid(other)"
	}
}

// Flag-field layout (the 24-bit low field of the flags-and-page word):
//
//	bits 0..3   content type
//	bit  4      scalar clip-edge fade enable
//	bits 5..8   per-edge fade mask (left, right, top, bottom)
//	bits 9..23  reserved, must be zero
const (
	contentTypeBits = 0xF

	// FlagFadeScalar enables the scalar fade: alpha ramps linearly with the
	// fragment's minimum distance to any clip-rectangle edge.
	FlagFadeScalar uint32 = 1 << 4

	fadeEdgeShift = 5
)

// FadeEdges is a 4-bit mask selecting which quad edges apply a linear fade
// ramp over the fixed FadeRampPx distance.
type FadeEdges uint32

const (
	FadeLeft   FadeEdges = 1 << 0
	FadeRight  FadeEdges = 1 << 1
	FadeTop    FadeEdges = 1 << 2
	FadeBottom FadeEdges = 1 << 3

	// FadeAll fades every edge of the quad.
	FadeAll = FadeLeft | FadeRight | FadeTop | FadeBottom
)

// FadeRampPx is the fixed fade ramp length in pixels. Alpha rises linearly
// from 0 at a faded edge to 1 at this distance from it.
const FadeRampPx = 15.0

// MakeFlags combines a content type, the scalar-fade enable, and a per-edge
// fade mask into the 24-bit flag field.
func MakeFlags(content ContentType, scalarFade bool, edges FadeEdges) uint32 {
	f := uint32(content) & contentTypeBits
	if scalarFade {
		f |= FlagFadeScalar
	}
	f |= uint32(edges&0xF) << fadeEdgeShift
	return f
}

// ContentTypeFromFlags extracts the content type nibble from a flag field.
func ContentTypeFromFlags(flags uint32) ContentType {
	return ContentType(flags & contentTypeBits)
}

// FadeEdgesFromFlags extracts the per-edge fade mask from a flag field.
func FadeEdgesFromFlags(flags uint32) FadeEdges {
	return FadeEdges(flags >> fadeEdgeShift & 0xF)
}

// HasScalarFade reports whether the scalar clip-edge fade bit is set.
func HasScalarFade(flags uint32) bool {
	return flags&FlagFadeScalar != 0
}

// ClipRect is a signed pixel-space clip rectangle. All four components must
// lie in the signed 16-bit range [-32768, 32767]; values outside wrap
// silently when packed (a producer-side contract violation, not a renderer
// error).
type ClipRect struct {
	X, Y          int32 // top-left corner
	Right, Bottom int32 // exclusive right/bottom edges
}

// NoClip returns a clip rectangle covering the whole packable coordinate
// space, i.e. one that never trims a quad.
func NoClip() ClipRect {
	return ClipRect{X: -32768, Y: -32768, Right: 32767, Bottom: 32767}
}

// packWords packs the rectangle into the two-word wire form: word 0 holds
// (x, y), word 1 holds (right, bottom), each as a signed 16-bit pair.
func (c ClipRect) packWords() (uint32, uint32) {
	return PackInt16Pair(int16(c.X), int16(c.Y)),
		PackInt16Pair(int16(c.Right), int16(c.Bottom))
}

// Quad is one packed instance record: a single glyph quad, bitmap quad, or
// solid rectangle. This is the canonical (most capability-complete) record
// revision: multi-page atlases via the 8-bit page field, signed packed clip
// rectangles, and a combined flags-and-page word. Earlier revisions with a
// separate page field or four-word clip rectangles are not supported.
//
// Records are transient: the upstream producer rebuilds them every frame
// and they carry no identity beyond a single draw submission.
type Quad struct {
	// X, Y is the quad's top-left corner in pixel space.
	X, Y int32

	// Width, Height is the quad size in pixels (packed as a u16 pair).
	Width, Height uint16

	// U, V is the atlas-page-local UV origin in texels (packed as a u16
	// pair). Unused for solid fills.
	U, V uint16

	// Color is the packed instance color, red-high to alpha-low.
	// See PackColorRGBA.
	Color uint32

	// Depth orders overlapping quads and feeds the optional depth-range
	// discard. Larger is farther; the producer sorts, this stage does not.
	Depth float32

	// Flags is the 24-bit flag field (content type + fade bits).
	// See MakeFlags.
	Flags uint32

	// Page is the atlas page index within the content type's page set.
	Page uint8

	// Clip is the quad's clip rectangle.
	Clip ClipRect
}

// QuadStride is the byte size of one encoded instance record:
//
//	pos        2 x i32    8 bytes  (location 0, sint32x2)
//	dim        u16 pair   4 bytes  (location 1, uint32)
//	uv         u16 pair   4 bytes  (location 2, uint32)
//	color      rgba8      4 bytes  (location 3, uint32)
//	depth      f32        4 bytes  (location 4, float32)
//	flags+page u32        4 bytes  (location 5, uint32)
//	clip       2 x u32    8 bytes  (location 6, uint32x2)
const QuadStride = 36

// ContentType returns the quad's content type.
func (q *Quad) ContentType() ContentType {
	return ContentTypeFromFlags(q.Flags)
}

// flagsPage returns the combined flags-and-page word.
func (q *Quad) flagsPage() uint32 {
	return PackFlagsPage(q.Flags, q.Page)
}

// encode writes the record's wire form into buf, which must hold at least
// QuadStride bytes.
func (q *Quad) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(q.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(q.Y))
	binary.LittleEndian.PutUint32(buf[8:12], PackUint16Pair(q.Width, q.Height))
	binary.LittleEndian.PutUint32(buf[12:16], PackUint16Pair(q.U, q.V))
	binary.LittleEndian.PutUint32(buf[16:20], q.Color)
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(q.Depth))
	binary.LittleEndian.PutUint32(buf[24:28], q.flagsPage())
	c0, c1 := q.Clip.packWords()
	binary.LittleEndian.PutUint32(buf[28:32], c0)
	binary.LittleEndian.PutUint32(buf[32:36], c1)
}

// EncodeQuads serializes instance records into the little-endian wire form
// consumed by the quad pipeline's per-instance vertex buffer.
func EncodeQuads(quads []Quad) []byte {
	if len(quads) == 0 {
		return nil
	}
	buf := make([]byte, len(quads)*QuadStride)
	off := 0
	for i := range quads {
		quads[i].encode(buf[off:])
		off += QuadStride
	}
	return buf
}
