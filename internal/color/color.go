// Package color implements the sRGB transfer functions used by the
// fragment-stage compositing logic. The piecewise curves here must match
// the shader implementations exactly; the spec constants (0.04045,
// 12.92, 1.055, 2.4) are the standard IEC 61966-2-1 values.
package color

import "math"

// RGBA is a normalized float color. Whether the components are linear or
// sRGB-encoded depends on where it sits in the pipeline; alpha is always
// linear coverage.
type RGBA struct {
	R, G, B, A float32
}

// SRGBToLinear applies the sRGB EOTF to one component:
// s <= 0.04045 maps to s/12.92, else ((s+0.055)/1.055)^2.4.
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB applies the inverse transfer (OETF) to one component:
// l <= 0.0031308 maps to l*12.92, else 1.055*l^(1/2.4)-0.055.
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// SRGBToLinearRGBA converts the color components of c from sRGB to
// linear. Alpha is never gamma-encoded and passes through unchanged.
func SRGBToLinearRGBA(c RGBA) RGBA {
	return RGBA{
		R: SRGBToLinear(c.R),
		G: SRGBToLinear(c.G),
		B: SRGBToLinear(c.B),
		A: c.A,
	}
}

// LinearToSRGBRGBA converts the color components of c from linear to
// sRGB. Alpha passes through unchanged.
func LinearToSRGBRGBA(c RGBA) RGBA {
	return RGBA{
		R: LinearToSRGB(c.R),
		G: LinearToSRGB(c.G),
		B: LinearToSRGB(c.B),
		A: c.A,
	}
}

// FromBytes maps 8-bit components onto [0, 1].
func FromBytes(r, g, b, a uint8) RGBA {
	return RGBA{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: float32(a) / 255.0,
	}
}

// ToBytes maps components back to 8 bits with clamping and rounding.
func (c RGBA) ToBytes() (r, g, b, a uint8) {
	return clampByte(c.R), clampByte(c.G), clampByte(c.B), clampByte(c.A)
}

// Premultiply scales the color components by alpha, the form the
// blending stage consumes.
func (c RGBA) Premultiply() RGBA {
	return RGBA{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
