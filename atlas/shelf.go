package atlas

// shelf is one horizontal strip of a shelf packer.
type shelf struct {
	y      int // top edge of the shelf
	height int // shelf height, fixed by the tallest early item
	nextX  int // next free x position
}

// shelfPacker places rectangles left to right on horizontal shelves,
// opening a new shelf below the last when nothing fits. Regions are never
// freed individually; the whole packer resets at once. Not safe for
// concurrent use; Page synchronizes access.
type shelfPacker struct {
	width   int
	height  int
	padding int

	shelves  []shelf
	usedArea int
}

func newShelfPacker(width, height, padding int) *shelfPacker {
	return &shelfPacker{
		width:   width,
		height:  height,
		padding: padding,
	}
}

// allocate finds space for a width x height rectangle. It returns an
// invalid region when the packer cannot fit it.
func (p *shelfPacker) allocate(width, height int) Region {
	if width <= 0 || height <= 0 {
		return Region{}
	}

	paddedW := width + p.padding
	paddedH := height + p.padding
	if paddedW > p.width || paddedH > p.height {
		return Region{}
	}

	for i := range p.shelves {
		s := &p.shelves[i]
		if s.nextX+paddedW > p.width {
			continue
		}
		// A shelf with items on it cannot grow taller.
		if paddedH > s.height && s.nextX > 0 {
			continue
		}
		r := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
		s.nextX += paddedW
		if paddedH > s.height {
			s.height = paddedH
		}
		p.usedArea += width * height
		return r
	}

	// Open a new shelf below the last one.
	newY := 0
	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		newY = last.y + last.height
	}
	if newY+paddedH > p.height {
		return Region{}
	}
	p.shelves = append(p.shelves, shelf{y: newY, height: paddedH, nextX: paddedW})
	p.usedArea += width * height
	return Region{X: 0, Y: newY, Width: width, Height: height}
}

// reset discards all allocations.
func (p *shelfPacker) reset() {
	p.shelves = p.shelves[:0]
	p.usedArea = 0
}

// utilization returns the fraction of the page area in use.
func (p *shelfPacker) utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}
