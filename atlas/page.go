package atlas

import "fmt"

// Page is a single atlas page: a shelf-packed pixel buffer of the page
// set's kind, with dirty-rectangle tracking for incremental GPU upload.
// Pages are created and synchronized by their PageSet.
type Page struct {
	kind   PageKind
	width  int
	height int

	packer *shelfPacker
	pixels []byte

	dirty    bool
	dirtyBox Region
}

func newPage(kind PageKind, width, height, padding int) *Page {
	return &Page{
		kind:   kind,
		width:  width,
		height: height,
		packer: newShelfPacker(width, height, padding),
		pixels: make([]byte, width*height*kind.BytesPerPixel()),
	}
}

// Kind returns the page's pixel format kind.
func (p *Page) Kind() PageKind { return p.kind }

// Width returns the page width in pixels.
func (p *Page) Width() int { return p.width }

// Height returns the page height in pixels.
func (p *Page) Height() int { return p.height }

// Pixels returns the page's backing pixel buffer, row-major with a row
// stride of Width()*Kind().BytesPerPixel(). Callers must not mutate it.
func (p *Page) Pixels() []byte { return p.pixels }

// Utilization returns the fraction of page area allocated.
func (p *Page) Utilization() float64 { return p.packer.utilization() }

// upload copies tightly packed pixel data into region.
func (p *Page) upload(region Region, pix []byte) error {
	if region.X < 0 || region.Y < 0 ||
		region.X+region.Width > p.width ||
		region.Y+region.Height > p.height {
		return fmt.Errorf("%w: %v on %dx%d page", ErrRegionOutOfBounds, region, p.width, p.height)
	}

	bpp := p.kind.BytesPerPixel()
	want := region.Width * region.Height * bpp
	if len(pix) != want {
		return fmt.Errorf("%w: region %v needs %d bytes, got %d",
			ErrSizeMismatch, region, want, len(pix))
	}

	rowBytes := region.Width * bpp
	pageStride := p.width * bpp
	dst := region.Y*pageStride + region.X*bpp
	src := 0
	for row := 0; row < region.Height; row++ {
		copy(p.pixels[dst:dst+rowBytes], pix[src:src+rowBytes])
		dst += pageStride
		src += rowBytes
	}

	p.dirtyBox = p.dirtyBox.union(region)
	p.dirty = true
	return nil
}

// TakeDirty returns the bounding box of all uploads since the last call
// and clears the dirty state. ok is false when nothing changed.
func (p *Page) TakeDirty() (box Region, ok bool) {
	if !p.dirty {
		return Region{}, false
	}
	box = p.dirtyBox
	p.dirty = false
	p.dirtyBox = Region{}
	return box, true
}

// reset discards all allocations and marks the full page dirty so a
// following GPU sync overwrites stale texels.
func (p *Page) reset() {
	p.packer.reset()
	for i := range p.pixels {
		p.pixels[i] = 0
	}
	p.dirty = true
	p.dirtyBox = Region{X: 0, Y: 0, Width: p.width, Height: p.height}
}
