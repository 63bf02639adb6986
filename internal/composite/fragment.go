package composite

import "github.com/kekelp/textslabs/internal/color"

// TextureSource supplies atlas texels to the fragment stage. The GPU
// path binds array textures; the software path reads atlas page pixel
// buffers. Coordinates are texels on the given page; implementations
// sample nearest.
type TextureSource interface {
	// SampleMask returns the single-channel coverage value in [0, 1].
	SampleMask(page uint8, u, v float32) float32

	// SampleColor returns the RGBA texel, sRGB-encoded, straight alpha.
	SampleColor(page uint8, u, v float32) color.RGBA
}

// Fragment is one fragment-stage invocation's interpolated inputs.
type Fragment struct {
	// PixelX, PixelY is the fragment center in screen pixel space.
	PixelX, PixelY float32

	// U, V is the interpolated texel coordinate.
	U, V float32

	// LocalX, LocalY is the position within the unclipped quad, in
	// pixels from its top-left corner.
	LocalX, LocalY float32
}

// debugColor is the fixed fallback rendered for unrecognized content
// types and shape kinds. Magenta, visually unmistakable.
var debugColor = color.RGBA{R: 1, G: 0, B: 1, A: 1}

// Shade runs the fragment stage for one quad fragment. It returns the
// premultiplied output color and whether the fragment is discarded.
//
// Dispatch is on the content type: mask samples modulate the instance
// color's alpha, color samples multiply component-wise, the solid branch
// uses the instance color directly, and any other value renders
// debugColor. When the surface is not sRGB-aware the color channels are
// converted sRGB-to-linear before blending; alpha is never converted.
func Shade(q *Quad, f Fragment, src TextureSource, p Params) (color.RGBA, bool) {
	// Fragment-side clip test, the backstop behind vertex clipping.
	if f.PixelX < q.ClipX || f.PixelX >= q.ClipRight ||
		f.PixelY < q.ClipY || f.PixelY >= q.ClipBottom {
		return color.RGBA{}, true
	}

	instance := color.RGBA{R: q.Color[0], G: q.Color[1], B: q.Color[2], A: q.Color[3]}

	var out color.RGBA
	switch contentTypeOf(q.Flags) {
	case contentMask:
		coverage := src.SampleMask(q.Page, f.U, f.V)
		out = instance
		out.A *= coverage
	case contentColor:
		tex := src.SampleColor(q.Page, f.U, f.V)
		out = color.RGBA{
			R: tex.R * instance.R,
			G: tex.G * instance.G,
			B: tex.B * instance.B,
			A: tex.A * instance.A,
		}
	case contentSolid:
		out = instance
	default:
		out = debugColor
	}

	if !p.SRGBSurface {
		out = color.SRGBToLinearRGBA(out)
	}

	out.A *= fadeAlpha(q, f)
	return out.Premultiply(), false
}

// fadeAlpha computes the fade multiplier the instance flags select:
// either a single scalar ramp on the fragment's minimum distance to any
// clip edge, or the product of per-edge ramps over the quad-local
// coordinates. Both ramp linearly over fadeRampPx pixels, clamping to
// [0, 1]; with no fade bits set the multiplier is 1.
func fadeAlpha(q *Quad, f Fragment) float32 {
	const fadeRampPx = 15.0

	fade := float32(1)

	if q.Flags&flagScalarFade != 0 {
		d := minf(
			minf(f.PixelX-q.ClipX, q.ClipRight-f.PixelX),
			minf(f.PixelY-q.ClipY, q.ClipBottom-f.PixelY),
		)
		fade *= clampf(d/fadeRampPx, 0, 1)
	}

	if q.Flags&fadeLeft != 0 {
		fade *= clampf(f.LocalX/fadeRampPx, 0, 1)
	}
	if q.Flags&fadeRight != 0 {
		fade *= clampf((q.Width-f.LocalX)/fadeRampPx, 0, 1)
	}
	if q.Flags&fadeTop != 0 {
		fade *= clampf(f.LocalY/fadeRampPx, 0, 1)
	}
	if q.Flags&fadeBottom != 0 {
		fade *= clampf((q.Height-f.LocalY)/fadeRampPx, 0, 1)
	}

	return fade
}
