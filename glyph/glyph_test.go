package glyph

import (
	"math"
	"testing"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

func TestQuantizeX(t *testing.T) {
	tests := []struct {
		x       float32
		wantInt int32
		wantBin SubpixelBin
	}{
		{10.0, 10, 0},
		{10.2, 10, 0},
		{10.25, 10, 1},
		{10.5, 10, 2},
		{10.75, 10, 3},
		{10.99, 10, 3},
		{-0.5, -1, 2},
		{-1.0, -1, 0},
		{-0.1, -1, 3},
	}
	for _, tt := range tests {
		gotInt, gotBin := QuantizeX(tt.x)
		if gotInt != tt.wantInt || gotBin != tt.wantBin {
			t.Errorf("QuantizeX(%v) = (%d, %d), want (%d, %d)",
				tt.x, gotInt, gotBin, tt.wantInt, tt.wantBin)
		}
	}
}

func TestSubpixelBinOffset(t *testing.T) {
	for b := SubpixelBin(0); b < SubpixelBins; b++ {
		want := float32(b) * 0.25
		if got := b.Offset(); got != want {
			t.Errorf("bin %d offset = %v, want %v", b, got, want)
		}
	}
}

func TestNewKeyDistinguishesVariants(t *testing.T) {
	k1, px := NewKey(1, 42, 16, 10.3)
	if px != 10 {
		t.Errorf("pixel = %d, want 10", px)
	}
	k2, _ := NewKey(1, 42, 16, 10.6) // different bin
	k3, _ := NewKey(1, 42, 17, 10.3) // different size
	k4, _ := NewKey(2, 42, 16, 10.3) // different font
	if k1 == k2 || k1 == k3 || k1 == k4 {
		t.Error("distinct variants produced equal keys")
	}
	if k1.SizeBits != math.Float32bits(16) {
		t.Errorf("SizeBits = %#x", k1.SizeBits)
	}

	// Same variant, different integer pixel: same key.
	k5, px5 := NewKey(1, 42, 16, 250.3)
	if k1 != k5 {
		t.Error("same subpixel variant produced different keys")
	}
	if px5 != 250 {
		t.Errorf("pixel = %d, want 250", px5)
	}
}

func TestKeyHashSpreads(t *testing.T) {
	seen := make(map[uint64]bool)
	for gid := uint16(0); gid < 64; gid++ {
		for bin := SubpixelBin(0); bin < SubpixelBins; bin++ {
			k := Key{FontID: 1, GID: gid, SizeBits: math.Float32bits(16), Bin: bin}
			seen[k.Hash()] = true
		}
	}
	if len(seen) != 64*SubpixelBins {
		t.Errorf("hash collisions: %d unique of %d", len(seen), 64*SubpixelBins)
	}
}

func TestPositionShaped(t *testing.T) {
	glyphs := []shaping.Glyph{
		{GlyphID: 10, Advance: fixed.I(12)},
		{GlyphID: 11, Advance: fixed.I(8), XOffset: fixed.I(1), YOffset: fixed.I(2)},
		{GlyphID: 12, Advance: fixed.I(6)},
	}

	out := PositionShaped(glyphs, di.DirectionLTR, 100, 50)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].X != 100 || out[0].Y != 50 {
		t.Errorf("glyph 0 at (%v, %v)", out[0].X, out[0].Y)
	}
	// Second glyph: pen advanced by 12, plus its own offsets
	// (shaper y offsets point up, pixel y points down).
	if out[1].X != 113 || out[1].Y != 48 {
		t.Errorf("glyph 1 at (%v, %v), want (113, 48)", out[1].X, out[1].Y)
	}
	if out[2].X != 120 || out[2].Y != 50 {
		t.Errorf("glyph 2 at (%v, %v), want (120, 50)", out[2].X, out[2].Y)
	}

	if got := PositionShaped(nil, di.DirectionLTR, 0, 0); got != nil {
		t.Errorf("empty input = %v", got)
	}
}

func TestSegmentBounds(t *testing.T) {
	segs := sfnt.Segments{
		{Op: sfnt.SegmentOpMoveTo, Args: [3]fixed.Point26_6{{X: fixed.I(1), Y: fixed.I(-10)}}},
		{Op: sfnt.SegmentOpLineTo, Args: [3]fixed.Point26_6{{X: fixed.I(5), Y: fixed.I(2)}}},
		{Op: sfnt.SegmentOpQuadTo, Args: [3]fixed.Point26_6{
			{X: fixed.I(8), Y: fixed.I(-3)},
			{X: fixed.I(3), Y: fixed.I(0)},
		}},
	}
	minX, minY, maxX, maxY := segmentBounds(segs)
	if minX != 1 || minY != -10 || maxX != 8 || maxY != 2 {
		t.Errorf("bounds = (%v, %v, %v, %v)", minX, minY, maxX, maxY)
	}
}

func TestCacheRasterizesOnce(t *testing.T) {
	c := NewCache(8)
	key, _ := NewKey(1, 5, 14, 0)

	calls := 0
	get := func() *Mask {
		return c.GetOrCreate(key, func() *Mask {
			calls++
			return &Mask{Advance: 7}
		})
	}

	m1 := get()
	m2 := get()
	if m1 != m2 {
		t.Error("cache returned different masks for same key")
	}
	if calls != 1 {
		t.Errorf("rasterized %d times, want 1", calls)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}
