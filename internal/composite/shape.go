package composite

import (
	"math"

	"github.com/kekelp/textslabs/internal/color"
)

// Shape kinds of the multiplexed pipeline's instance stream.
const (
	kindEllipse  = 0
	kindTextQuad = 1
)

// Ellipse is one decoded record of the ellipse storage collection.
type Ellipse struct {
	// CenterX, CenterY is the ellipse center in pixel space.
	CenterX, CenterY float32

	// Width, Height are the full extents in pixels.
	Width, Height float32

	// Color is the fill as normalized straight-alpha RGBA.
	Color [4]float32
}

// ShapeVertex is one expanded corner of a multiplexed shape, carrying
// the per-kind payload the fragment stage needs.
type ShapeVertex struct {
	Vertex

	// Kind is the shape kind as drawn, normalized so unknown input
	// kinds come out as a solid text quad with the debug color.
	Kind uint32

	// LocalX, LocalY is the corner position normalized to [-1, 1]
	// across the bounding quad. Only meaningful for ellipses.
	LocalX, LocalY float32

	// Color is the flat color for non-atlas kinds.
	Color color.RGBA
}

// ExpandShapeVertex runs the multiplexed vertex stage: dispatch on the
// instance's shape kind, read the record at offset from the matching
// storage collection, and expand the corner. Out-of-range offsets and
// unrecognized kinds are defined behavior, never an error: they emit a
// degenerate solid quad in the debug color.
func ExpandShapeVertex(
	kind, offset, cornerIndex uint32,
	ellipses []Ellipse,
	quads []Quad,
	p Params,
) ShapeVertex {
	switch {
	case kind == kindEllipse && int(offset) < len(ellipses):
		return expandEllipse(&ellipses[offset], cornerIndex, p)
	case kind == kindTextQuad && int(offset) < len(quads):
		v := ExpandVertex(&quads[offset], cornerIndex, p, nil)
		return ShapeVertex{Vertex: v, Kind: kindTextQuad}
	default:
		return debugShapeVertex()
	}
}

// expandEllipse produces the corner of the ellipse's bounding quad with
// local coordinates spanning [-1, 1] for the fragment distance test.
func expandEllipse(e *Ellipse, cornerIndex uint32, p Params) ShapeVertex {
	cx, cy := Corner(cornerIndex)

	px := e.CenterX + (cx-0.5)*e.Width
	py := e.CenterY + (cy-0.5)*e.Height
	ndcX, ndcY := ToNDC(px, py, p)

	return ShapeVertex{
		Vertex: Vertex{
			NDCX:   ndcX,
			NDCY:   ndcY,
			PixelX: px,
			PixelY: py,
		},
		Kind:   kindEllipse,
		LocalX: 2*cx - 1,
		LocalY: 2*cy - 1,
		Color:  color.RGBA{R: e.Color[0], G: e.Color[1], B: e.Color[2], A: e.Color[3]},
	}
}

// debugShapeVertex is the unknown-kind fallback: a degenerate quad
// (all corners coincide off-screen) in the debug color. Degenerate
// geometry never rasterizes, so the color only becomes visible in
// revisions that expand the fallback to a visible quad; either way the
// fragment output is defined.
func debugShapeVertex() ShapeVertex {
	return ShapeVertex{
		Vertex: Vertex{NDCX: -2, NDCY: -2},
		Kind:   kindTextQuad,
		Color:  debugColor,
	}
}

// EllipseAlpha is the ellipse fragment coverage at normalized local
// coordinates: 1 inside, easing to 0 across a smoothstep band between
// 0.95 and 1.0 of the unit circle.
func EllipseAlpha(localX, localY float32) float32 {
	d := float32(math.Sqrt(float64(localX*localX + localY*localY)))
	return 1 - smoothstep(0.95, 1.0, d)
}

// ellipseDiscardThreshold drops near-invisible rim fragments early.
const ellipseDiscardThreshold = 0.01

// ShadeEllipse runs the ellipse fragment stage. It returns the
// premultiplied output color and whether the fragment is discarded.
func ShadeEllipse(v *ShapeVertex, localX, localY float32, p Params) (color.RGBA, bool) {
	alpha := EllipseAlpha(localX, localY)
	if alpha < ellipseDiscardThreshold {
		return color.RGBA{}, true
	}

	out := v.Color
	if !p.SRGBSurface {
		out = color.SRGBToLinearRGBA(out)
	}
	out.A *= alpha
	return out.Premultiply(), false
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := clampf((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
