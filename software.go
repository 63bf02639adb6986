package textslabs

import (
	"image"
	"math"

	"github.com/kekelp/textslabs/atlas"
	icolor "github.com/kekelp/textslabs/internal/color"
	"github.com/kekelp/textslabs/internal/composite"
)

// pageSource adapts atlas page sets to the fragment stage's texture
// interface. Sampling is nearest, matching the GPU sampler; reads
// outside a page clamp to its edge and a missing page samples as
// transparent black.
type pageSource struct {
	mask  *atlas.PageSet
	color *atlas.PageSet
}

func nearestTexel(page *atlas.Page, u, v float32) (x, y int, ok bool) {
	if page == nil {
		return 0, 0, false
	}
	x = int(math.Floor(float64(u)))
	y = int(math.Floor(float64(v)))
	if x < 0 {
		x = 0
	} else if x >= page.Width() {
		x = page.Width() - 1
	}
	if y < 0 {
		y = 0
	} else if y >= page.Height() {
		y = page.Height() - 1
	}
	return x, y, true
}

func (s pageSource) SampleMask(page uint8, u, v float32) float32 {
	p := s.mask.Page(int(page))
	x, y, ok := nearestTexel(p, u, v)
	if !ok {
		return 0
	}
	return float32(p.Pixels()[y*p.Width()+x]) / 255.0
}

func (s pageSource) SampleColor(page uint8, u, v float32) icolor.RGBA {
	p := s.color.Page(int(page))
	x, y, ok := nearestTexel(p, u, v)
	if !ok {
		return icolor.RGBA{}
	}
	pix := p.Pixels()
	off := (y*p.Width() + x) * 4
	return icolor.FromBytes(pix[off], pix[off+1], pix[off+2], pix[off+3])
}

// decodeQuad splits a packed instance record into the scalar form the
// reference stages consume, the CPU mirror of the shader-side unpack.
func decodeQuad(q *Quad) composite.Quad {
	r, g, b, a := UnpackColorRGBA(q.Color)
	return composite.Quad{
		X:          float32(q.X),
		Y:          float32(q.Y),
		Width:      float32(q.Width),
		Height:     float32(q.Height),
		U:          float32(q.U),
		V:          float32(q.V),
		Color:      [4]float32{r, g, b, a},
		Depth:      q.Depth,
		Flags:      q.Flags,
		Page:       q.Page,
		ClipX:      float32(q.Clip.X),
		ClipY:      float32(q.Clip.Y),
		ClipRight:  float32(q.Clip.Right),
		ClipBottom: float32(q.Clip.Bottom),
	}
}

// blendPremul composites a premultiplied source fragment over dst at
// (x, y). image.RGBA stores premultiplied components, so the over
// operator applies directly.
func blendPremul(dst *image.RGBA, x, y int, c icolor.RGBA) {
	off := dst.PixOffset(x, y)
	pix := dst.Pix[off : off+4]

	sr, sg, sb, sa := c.ToBytes()
	inv := uint32(255 - sa)
	pix[0] = uint8(uint32(sr) + uint32(pix[0])*inv/255)
	pix[1] = uint8(uint32(sg) + uint32(pix[1])*inv/255)
	pix[2] = uint8(uint32(sb) + uint32(pix[2])*inv/255)
	pix[3] = uint8(uint32(sa) + uint32(pix[3])*inv/255)
}

// pixelSpan clamps a float interval [lo, hi) to dst's integer pixel
// range on one axis.
func pixelSpan(lo, hi float32, limit int) (start, end int) {
	start = int(math.Floor(float64(lo)))
	end = int(math.Ceil(float64(hi)))
	if start < 0 {
		start = 0
	}
	if end > limit {
		end = limit
	}
	return start, end
}

func drawQuad(dst *image.RGBA, q *composite.Quad, src composite.TextureSource, p composite.Params) {
	c := q.Clip()
	if c.Width <= 0 || c.Height <= 0 {
		return
	}

	b := dst.Bounds()
	x0, x1 := pixelSpan(c.X, c.X+c.Width, b.Dx())
	y0, y1 := pixelSpan(c.Y, c.Y+c.Height, b.Dy())

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5
			frag := composite.Fragment{
				PixelX: px,
				PixelY: py,
				U:      q.U + (px - q.X),
				V:      q.V + (py - q.Y),
				LocalX: px - q.X,
				LocalY: py - q.Y,
			}
			out, discard := composite.Shade(q, frag, src, p)
			if discard {
				continue
			}
			blendPremul(dst, b.Min.X+x, b.Min.Y+y, out)
		}
	}
}

func drawEllipse(dst *image.RGBA, e *composite.Ellipse, p composite.Params) {
	if e.Width <= 0 || e.Height <= 0 {
		return
	}

	b := dst.Bounds()
	x0, x1 := pixelSpan(e.CenterX-e.Width/2, e.CenterX+e.Width/2, b.Dx())
	y0, y1 := pixelSpan(e.CenterY-e.Height/2, e.CenterY+e.Height/2, b.Dy())

	v := composite.ShapeVertex{
		Color: icolor.RGBA{R: e.Color[0], G: e.Color[1], B: e.Color[2], A: e.Color[3]},
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			localX := (float32(x) + 0.5 - e.CenterX) / (e.Width / 2)
			localY := (float32(y) + 0.5 - e.CenterY) / (e.Height / 2)
			out, discard := composite.ShadeEllipse(&v, localX, localY, p)
			if discard {
				continue
			}
			blendPremul(dst, b.Min.X+x, b.Min.Y+y, out)
		}
	}
}

// CompositeInto renders a frame's records into dst with the reference
// stage implementations: the vertex stage's clip intersection per quad,
// the fragment stage per covered pixel, premultiplied-over blending.
// It produces the same coverage and colors as the GPU pipelines and
// backs the golden tests.
//
// Shapes are drawn in stream order, each indexing into quads or
// ellipses by kind. Records with out-of-range offsets or unknown kinds
// correspond to the degenerate debug quad and draw nothing.
func CompositeInto(
	dst *image.RGBA,
	quads []Quad,
	ellipses []Ellipse,
	shapes []Shape,
	params Params,
	maskPages, colorPages *atlas.PageSet,
) {
	src := pageSource{mask: maskPages, color: colorPages}
	p := composite.Params{
		Width:       params.ScreenWidth,
		Height:      params.ScreenHeight,
		SRGBSurface: params.SRGBSurface,
	}

	for _, s := range shapes {
		switch {
		case s.Kind == ShapeEllipse && int(s.Offset) < len(ellipses):
			e := &ellipses[s.Offset]
			ce := composite.Ellipse{
				CenterX: e.X, CenterY: e.Y,
				Width: e.W, Height: e.H,
				Color: e.Color,
			}
			drawEllipse(dst, &ce, p)
		case s.Kind == ShapeTextQuad && int(s.Offset) < len(quads):
			cq := decodeQuad(&quads[s.Offset])
			drawQuad(dst, &cq, src, p)
		}
	}
}

// RenderSoftware composites the current frame into dst on the CPU. It
// needs no GPU device and leaves the frame state untouched, so it works
// before InitGPU and alongside the GPU path for verification.
func (r *Renderer) RenderSoftware(dst *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	CompositeInto(dst, r.quads, r.ellipses, r.shapes, r.params, r.maskPages, r.colorPages)
	return nil
}
