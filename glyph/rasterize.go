package glyph

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ErrColoredGlyph is returned for glyphs that have no outline because
// they are color bitmaps (emoji). Callers route those to the color
// atlas path instead.
var ErrColoredGlyph = errors.New("textslabs: glyph is a color bitmap")

// Mask is one rasterized glyph: a coverage bitmap plus its placement
// relative to the glyph origin on the baseline.
type Mask struct {
	// Image is the coverage mask, nil for glyphs with no ink (spaces).
	Image *image.Alpha

	// Left, Top place the bitmap's top-left corner relative to the
	// glyph origin, in pixels. Top is negative for ascenders.
	Left, Top int32

	// Advance is the horizontal advance in pixels.
	Advance float32
}

// Rasterizer renders glyph outlines from one font into coverage masks.
// It wraps an sfnt font and reuses its loading buffer, so calls are
// serialized with a mutex.
type Rasterizer struct {
	mu   sync.Mutex
	font *sfnt.Font
	buf  sfnt.Buffer
}

// NewRasterizer parses TTF/OTF font data.
func NewRasterizer(data []byte) (*Rasterizer, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("textslabs: parse font: %w", err)
	}
	return &Rasterizer{font: f}, nil
}

// Mask rasterizes one glyph at the given pixel size, shifted right by
// the subpixel bin's offset before sampling so each bin gets its own
// coverage. Glyphs without ink return a Mask with a nil Image and a
// valid advance.
func (r *Rasterizer) Mask(gid uint16, size float32, bin SubpixelBin) (*Mask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ppem := fixed.Int26_6(size * 64)

	segments, err := r.font.LoadGlyph(&r.buf, sfnt.GlyphIndex(gid), ppem, nil)
	if err != nil {
		if errors.Is(err, sfnt.ErrColoredGlyph) {
			return nil, ErrColoredGlyph
		}
		return nil, fmt.Errorf("textslabs: load glyph %d: %w", gid, err)
	}

	advance := r.advanceLocked(gid, ppem)
	if len(segments) == 0 {
		return &Mask{Advance: advance}, nil
	}

	minX, minY, maxX, maxY := segmentBounds(segments)

	off := bin.Offset()
	left := int32(math.Floor(float64(minX + off)))
	top := int32(math.Floor(float64(minY)))
	width := int(math.Ceil(float64(maxX+off))) - int(left)
	height := int(math.Ceil(float64(maxY))) - int(top)
	if width <= 0 || height <= 0 {
		return &Mask{Advance: advance}, nil
	}

	// Shift the outline so the bitmap's top-left lands at (0, 0) with
	// the subpixel offset baked into the coverage.
	dx := off - float32(left)
	dy := -float32(top)

	vr := vector.NewRasterizer(width, height)
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			vr.MoveTo(pt(seg.Args[0], dx, dy))
		case sfnt.SegmentOpLineTo:
			vr.LineTo(pt(seg.Args[0], dx, dy))
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(seg.Args[0], dx, dy)
			x, y := pt(seg.Args[1], dx, dy)
			vr.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c0x, c0y := pt(seg.Args[0], dx, dy)
			c1x, c1y := pt(seg.Args[1], dx, dy)
			x, y := pt(seg.Args[2], dx, dy)
			vr.CubeTo(c0x, c0y, c1x, c1y, x, y)
		}
	}

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	vr.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return &Mask{
		Image:   mask,
		Left:    left,
		Top:     top,
		Advance: advance,
	}, nil
}

// Advance returns the horizontal advance of a glyph in pixels.
func (r *Rasterizer) Advance(gid uint16, size float32) float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advanceLocked(gid, fixed.Int26_6(size*64))
}

func (r *Rasterizer) advanceLocked(gid uint16, ppem fixed.Int26_6) float32 {
	adv, err := r.font.GlyphAdvance(&r.buf, sfnt.GlyphIndex(gid), ppem, font.HintingNone)
	if err != nil {
		return 0
	}
	return fixedToFloat(adv)
}

// pt converts a segment point to pixels and applies the bitmap shift.
func pt(p fixed.Point26_6, dx, dy float32) (float32, float32) {
	return fixedToFloat(p.X) + dx, fixedToFloat(p.Y) + dy
}

func segmentBounds(segments sfnt.Segments) (minX, minY, maxX, maxY float32) {
	minX, minY = math.MaxFloat32, math.MaxFloat32
	maxX, maxY = -math.MaxFloat32, -math.MaxFloat32

	grow := func(p fixed.Point26_6) {
		x, y := fixedToFloat(p.X), fixedToFloat(p.Y)
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}

	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo, sfnt.SegmentOpLineTo:
			grow(seg.Args[0])
		case sfnt.SegmentOpQuadTo:
			grow(seg.Args[0])
			grow(seg.Args[1])
		case sfnt.SegmentOpCubeTo:
			grow(seg.Args[0])
			grow(seg.Args[1])
			grow(seg.Args[2])
		}
	}
	return minX, minY, maxX, maxY
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64.0
}
