package glyph

import (
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/shaping"
)

// Glyph is one positioned glyph: the shaper's output flattened to an
// absolute pen position for the glyph origin (baseline left).
type Glyph struct {
	GID uint16

	// X, Y is the glyph origin in pixel space. X keeps its fraction;
	// quad placement quantizes it through QuantizeX.
	X, Y float32
}

// Run is one styled run of positioned glyphs, the unit the renderer's
// Prepare pass consumes. The upstream layout engine produces runs; this
// pipeline only rasterizes, atlases, and encodes them.
type Run struct {
	// FontID distinguishes fonts inside the glyph cache. Producers
	// assign stable IDs per loaded font.
	FontID uint64

	// Rasterizer renders this run's glyphs. Runs sharing a font share
	// one rasterizer.
	Rasterizer *Rasterizer

	// Size is the font size in pixels per em.
	Size float32

	// Color is the run's fill color, straight-alpha sRGB.
	Color [4]uint8

	// Depth orders this run against other draw content.
	Depth float32

	Glyphs []Glyph
}

// PositionShaped flattens shaper output into absolute glyph positions,
// starting the pen at (originX, originY) and accumulating advances the
// way the shaper's coordinate conventions expect (y offsets point up,
// pixel y points down).
func PositionShaped(glyphs []shaping.Glyph, dir di.Direction, originX, originY float32) []Glyph {
	if len(glyphs) == 0 {
		return nil
	}

	out := make([]Glyph, len(glyphs))
	var x, y float32
	for i, g := range glyphs {
		out[i] = Glyph{
			GID: uint16(g.GlyphID),
			X:   originX + x + fixedToFloat(g.XOffset),
			Y:   originY + y - fixedToFloat(g.YOffset),
		}
		if dir.IsVertical() {
			y += fixedToFloat(g.Advance)
		} else {
			x += fixedToFloat(g.Advance)
		}
	}
	return out
}
