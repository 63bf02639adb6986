package composite

import "math"

// Corner maps a 2-bit triangle-strip vertex index onto the quad corner
// it represents: bit 0 selects the x corner, bit 1 the y corner. The
// returned factors are 0 or 1 across the quad extent.
func Corner(index uint32) (cx, cy float32) {
	return float32(index & 1), float32(index >> 1 & 1)
}

// Clipped is an instance quad after clip-rectangle intersection.
type Clipped struct {
	// X, Y is the clipped top-left corner in pixel space.
	X, Y float32

	// Width, Height is the clipped extent, never negative.
	Width, Height float32

	// U, V is the UV origin shifted by the left/top trim so sampled
	// texels stay aligned with the unclipped source region.
	U, V float32
}

// Clip intersects the quad's bounds with its clip rectangle. Left and
// top clamp to the clip first; right and bottom clamp to the clip but
// never below the already-clamped left/top, so the result is well formed
// with extents >= 0 (zero-area when the clip excludes the quad
// entirely — degenerate quads still rasterize, they are not culled
// here). UV origins shift by the trimmed left/top amount.
func (q *Quad) Clip() Clipped {
	left := maxf(q.X, q.ClipX)
	top := maxf(q.Y, q.ClipY)
	right := maxf(minf(q.X+q.Width, q.ClipRight), left)
	bottom := maxf(minf(q.Y+q.Height, q.ClipBottom), top)

	return Clipped{
		X:      left,
		Y:      top,
		Width:  right - left,
		Height: bottom - top,
		U:      q.U + (left - q.X),
		V:      q.V + (top - q.Y),
	}
}

// Vertex is one expanded triangle-strip corner.
type Vertex struct {
	// NDCX, NDCY is the corner position in normalized device
	// coordinates, y up.
	NDCX, NDCY float32

	// PixelX, PixelY is the corner position in pixel space.
	PixelX, PixelY float32

	// U, V is the texel coordinate at this corner.
	U, V float32

	Depth float32
}

// ToNDC transforms a pixel-space position into normalized device
// coordinates: 2*(pixel/resolution)-1, vertical axis flipped so pixel
// y grows downward while NDC y grows upward.
func ToNDC(px, py float32, p Params) (float32, float32) {
	return 2*(px/p.Width) - 1, -(2*(py/p.Height) - 1)
}

// DepthRange is the optional depth interval filter. Vertices whose depth
// falls outside [Min, Max] are projected off-screen instead of drawn.
type DepthRange struct {
	Min, Max float32
}

// depthRangeULPBias widens the interval by 128 ULPs at the magnitude of
// each bound. A plain closed-interval compare flickers when producers
// recompute depths that land exactly on a bound; the bias is an
// anti-flicker guard at range boundaries, not a tolerance knob.
const depthRangeULPBias = 128

func ulpAt(v float32) float32 {
	av := float32(math.Abs(float64(v)))
	return math.Nextafter32(av, math.MaxFloat32) - av
}

// Contains reports whether depth lies inside the biased interval.
func (r DepthRange) Contains(depth float32) bool {
	epsMin := depthRangeULPBias * ulpAt(r.Min)
	epsMax := depthRangeULPBias * ulpAt(r.Max)
	return depth >= r.Min-epsMin && depth <= r.Max+epsMax
}

// ExpandVertex runs the full vertex stage for one instance and one strip
// corner: clip the quad, pick the corner, transform to NDC, and pass
// depth through. A non-nil depthRange that excludes the instance's depth
// projects the vertex off-screen (the quad never rasterizes); discard
// stays a fragment-stage notion.
func ExpandVertex(q *Quad, cornerIndex uint32, p Params, depthRange *DepthRange) Vertex {
	if depthRange != nil && !depthRange.Contains(q.Depth) {
		return Vertex{NDCX: -2, NDCY: -2, Depth: q.Depth}
	}

	c := q.Clip()
	cx, cy := Corner(cornerIndex)

	px := c.X + cx*c.Width
	py := c.Y + cy*c.Height
	ndcX, ndcY := ToNDC(px, py, p)

	return Vertex{
		NDCX:   ndcX,
		NDCY:   ndcY,
		PixelX: px,
		PixelY: py,
		U:      c.U + cx*c.Width,
		V:      c.V + cy*c.Height,
		Depth:  q.Depth,
	}
}
