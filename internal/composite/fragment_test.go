package composite

import (
	"math"
	"testing"

	"github.com/kekelp/textslabs/internal/color"
)

// flatSource returns fixed values regardless of coordinates.
type flatSource struct {
	mask float32
	tex  color.RGBA
}

func (s flatSource) SampleMask(uint8, float32, float32) float32 { return s.mask }

func (s flatSource) SampleColor(uint8, float32, float32) color.RGBA { return s.tex }

func wideOpen() Quad {
	return Quad{
		X: 0, Y: 0, Width: 100, Height: 100,
		Color: [4]float32{1, 1, 1, 1},
		ClipX: -1000, ClipY: -1000, ClipRight: 1000, ClipBottom: 1000,
	}
}

func TestShadeMaskAlphaProduct(t *testing.T) {
	// Mask sample 0.5 against instance alpha 0.8 composes to 0.4.
	q := wideOpen()
	q.Flags = contentMask
	q.Color = [4]float32{1, 1, 1, 0.8}

	out, discard := Shade(&q, Fragment{PixelX: 50, PixelY: 50}, flatSource{mask: 0.5}, Params{SRGBSurface: true})
	if discard {
		t.Fatal("fragment discarded")
	}
	if math.Abs(float64(out.A)-0.4) > 1e-6 {
		t.Errorf("alpha = %v, want 0.4", out.A)
	}
	// Premultiplied white at alpha 0.4.
	if math.Abs(float64(out.R)-0.4) > 1e-6 {
		t.Errorf("premultiplied red = %v, want 0.4", out.R)
	}
}

func TestShadeColorModulates(t *testing.T) {
	q := wideOpen()
	q.Flags = contentColor
	q.Color = [4]float32{0.5, 1, 1, 1}

	src := flatSource{tex: color.RGBA{R: 1, G: 0.5, B: 0.25, A: 0.5}}
	out, discard := Shade(&q, Fragment{PixelX: 10, PixelY: 10}, src, Params{SRGBSurface: true})
	if discard {
		t.Fatal("fragment discarded")
	}
	// Component-wise product, then premultiplied by alpha 0.5.
	if math.Abs(float64(out.R)-0.25) > 1e-6 ||
		math.Abs(float64(out.G)-0.25) > 1e-6 ||
		math.Abs(float64(out.B)-0.125) > 1e-6 ||
		math.Abs(float64(out.A)-0.5) > 1e-6 {
		t.Errorf("out = %+v", out)
	}
}

func TestShadeSolidAndUnknownContent(t *testing.T) {
	q := wideOpen()
	q.Flags = contentSolid
	q.Color = [4]float32{0.25, 0.5, 0.75, 1}

	out, _ := Shade(&q, Fragment{PixelX: 1, PixelY: 1}, flatSource{}, Params{SRGBSurface: true})
	if out.R != 0.25 || out.G != 0.5 || out.B != 0.75 {
		t.Errorf("solid fill = %+v", out)
	}

	// Unrecognized content type renders the debug color, not an error.
	q.Flags = 9
	out, discard := Shade(&q, Fragment{PixelX: 1, PixelY: 1}, flatSource{}, Params{SRGBSurface: true})
	if discard {
		t.Fatal("debug fallback discarded")
	}
	if out != debugColor.Premultiply() {
		t.Errorf("fallback = %+v, want debug color", out)
	}
}

func TestShadeSRGBConversion(t *testing.T) {
	q := wideOpen()
	q.Flags = contentSolid
	q.Color = [4]float32{0.5, 0.5, 0.5, 1}

	// sRGB-aware surface: instance color passes through.
	out, _ := Shade(&q, Fragment{PixelX: 1, PixelY: 1}, flatSource{}, Params{SRGBSurface: true})
	if out.R != 0.5 {
		t.Errorf("srgb surface red = %v, want 0.5", out.R)
	}

	// Linear surface: color channels get the EOTF, alpha does not.
	out, _ = Shade(&q, Fragment{PixelX: 1, PixelY: 1}, flatSource{}, Params{SRGBSurface: false})
	want := color.SRGBToLinear(0.5)
	if math.Abs(float64(out.R-want)) > 1e-6 {
		t.Errorf("linear surface red = %v, want %v", out.R, want)
	}
	if out.A != 1 {
		t.Errorf("alpha was converted: %v", out.A)
	}
}

func TestShadeFragmentClipBackstop(t *testing.T) {
	q := wideOpen()
	q.ClipX, q.ClipY, q.ClipRight, q.ClipBottom = 10, 10, 20, 20

	if _, discard := Shade(&q, Fragment{PixelX: 5, PixelY: 15}, flatSource{mask: 1}, Params{}); !discard {
		t.Error("fragment left of clip not discarded")
	}
	if _, discard := Shade(&q, Fragment{PixelX: 20, PixelY: 15}, flatSource{mask: 1}, Params{}); !discard {
		t.Error("fragment on exclusive right edge not discarded")
	}
	if _, discard := Shade(&q, Fragment{PixelX: 15, PixelY: 15}, flatSource{mask: 1}, Params{}); discard {
		t.Error("fragment inside clip discarded")
	}
}

func TestFadeAlphaScalar(t *testing.T) {
	q := wideOpen()
	q.Flags = contentSolid | flagScalarFade
	q.ClipX, q.ClipY, q.ClipRight, q.ClipBottom = 0, 0, 100, 100

	at := func(x, y float32) float32 {
		return fadeAlpha(&q, Fragment{PixelX: x, PixelY: y})
	}

	if got := at(0, 50); got != 0 {
		t.Errorf("fade at edge = %v, want 0", got)
	}
	if got := at(7.5, 50); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("fade at half ramp = %v, want 0.5", got)
	}
	if got := at(15, 50); got != 1 {
		t.Errorf("fade at ramp end = %v, want 1", got)
	}
	if got := at(50, 50); got != 1 {
		t.Errorf("fade deep inside = %v, want 1", got)
	}
}

func TestFadeAlphaMonotone(t *testing.T) {
	q := wideOpen()
	q.Flags = contentSolid | fadeLeft

	prev := float32(-1)
	for x := float32(0); x <= 30; x += 0.25 {
		got := fadeAlpha(&q, Fragment{LocalX: x, LocalY: 50})
		if got < prev {
			t.Fatalf("fade not monotone at local x %v: %v < %v", x, got, prev)
		}
		prev = got
	}
	if prev != 1 {
		t.Errorf("fade did not saturate at 1: %v", prev)
	}
}

func TestFadeAlphaPerEdgeProduct(t *testing.T) {
	q := wideOpen()
	q.Width, q.Height = 100, 100
	q.Flags = contentSolid | fadeLeft | fadeTop

	// 7.5 px from both faded edges: each ramp contributes 0.5.
	got := fadeAlpha(&q, Fragment{LocalX: 7.5, LocalY: 7.5})
	if math.Abs(float64(got)-0.25) > 1e-6 {
		t.Errorf("two-edge fade = %v, want 0.25", got)
	}

	// Right/bottom edges are not faded, so proximity to them is free.
	got = fadeAlpha(&q, Fragment{LocalX: 99, LocalY: 99})
	if got != 1 {
		t.Errorf("unfaded edges = %v, want 1", got)
	}

	q.Flags = contentSolid | fadeRight | fadeBottom
	got = fadeAlpha(&q, Fragment{LocalX: 99, LocalY: 99})
	want := float32(1.0/15.0) * float32(1.0/15.0)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("right/bottom fade = %v, want %v", got, want)
	}
}
