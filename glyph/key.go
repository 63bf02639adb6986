// Package glyph turns already-shaped glyph runs into the rasterized
// bitmaps and cache keys the atlas layer consumes. Shaping itself
// happens upstream (go-text/typesetting); this package starts where the
// shaper's positioned output ends.
package glyph

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// SubpixelBins is the number of horizontal subpixel positions a glyph
// is rasterized at. Four quarter-pixel bins trade cache size against
// positioning quality.
const SubpixelBins = 4

// SubpixelBin is a quantized horizontal subpixel position in
// [0, SubpixelBins).
type SubpixelBin uint8

// Offset returns the horizontal rasterization offset the bin stands
// for: bin/4 of a pixel.
func (b SubpixelBin) Offset() float32 {
	return float32(b) / SubpixelBins
}

// QuantizeX splits a fractional pen position into the integer pixel it
// floors to and the subpixel bin of the remainder. The fraction is
// carried through 26.6 fixed point so the binning matches the shaper's
// own position arithmetic.
func QuantizeX(x float32) (int32, SubpixelBin) {
	fx := fixed.Int26_6(math.Floor(float64(x) * 64))
	// Arithmetic shift floors negative positions toward -inf.
	floor := int32(fx >> 6)
	frac := fx & 63
	return floor, SubpixelBin(frac >> 4)
}

// Key identifies one rasterized glyph variant: font, glyph, pixel size,
// and subpixel bin. It is the atlas and bitmap cache key.
type Key struct {
	FontID   uint64
	GID      uint16
	SizeBits uint32
	Bin      SubpixelBin
}

// NewKey builds the cache key for a glyph drawn at pen position x, and
// returns the floored integer pixel the quad will be placed at.
func NewKey(fontID uint64, gid uint16, size float32, x float32) (Key, int32) {
	floor, bin := QuantizeX(x)
	return Key{
		FontID:   fontID,
		GID:      gid,
		SizeBits: math.Float32bits(size),
		Bin:      bin,
	}, floor
}

// Hash mixes the key fields FNV-1a style for cache shard selection.
func (k Key) Hash() uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	mix := func(v uint64, bytes int) {
		for i := 0; i < bytes; i++ {
			h ^= v & 0xFF
			h *= prime64
			v >>= 8
		}
	}
	mix(k.FontID, 8)
	mix(uint64(k.GID), 2)
	mix(uint64(k.SizeBits), 4)
	mix(uint64(k.Bin), 1)
	return h
}
