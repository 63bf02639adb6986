// Package atlas manages the glyph atlas pages backing the compositing
// pipeline: shelf-packed pixel pages, grouped into per-content-type page
// sets that grow on demand up to the 8-bit page index limit.
package atlas

import (
	"errors"
	"fmt"
)

// Atlas errors.
var (
	// ErrPageFull is returned when no page can fit the requested region
	// and the region would fit on an empty page.
	ErrPageFull = errors.New("textslabs: atlas page is full")

	// ErrTooManyPages is returned when a page set would grow past
	// MaxPages. The instance format addresses pages with 8 bits.
	ErrTooManyPages = errors.New("textslabs: atlas page limit reached")

	// ErrRegionTooLarge is returned when the requested region exceeds the
	// page dimensions and could never be allocated.
	ErrRegionTooLarge = errors.New("textslabs: region larger than atlas page")

	// ErrRegionOutOfBounds is returned when an upload region lies outside
	// the page bounds.
	ErrRegionOutOfBounds = errors.New("textslabs: region is outside page bounds")

	// ErrSizeMismatch is returned when uploaded pixel data does not match
	// the region dimensions.
	ErrSizeMismatch = errors.New("textslabs: pixel data does not match region size")

	// ErrClosed is returned when operating on a closed page set.
	ErrClosed = errors.New("textslabs: atlas page set is closed")
)

// Page set limits and defaults.
const (
	// MaxPages is the page count cap per page set. Instance records carry
	// the page index in 8 bits, so index 255 is the last addressable page.
	MaxPages = 256

	// DefaultPageSize is the default page dimension in pixels.
	DefaultPageSize = 2048

	// MinPageSize is the smallest accepted page dimension.
	MinPageSize = 256

	// DefaultPadding is the spacing between packed regions, in pixels.
	DefaultPadding = 1
)

// PageKind selects the pixel format of a page set. Mask pages hold
// single-channel coverage, color pages hold full RGBA bitmaps. The two
// kinds form parallel page sets; a quad's content type picks the set.
type PageKind uint8

const (
	KindMask  PageKind = iota // R8, one byte per pixel
	KindColor                 // RGBA8, four bytes per pixel
)

// BytesPerPixel returns the pixel stride of the page kind.
func (k PageKind) BytesPerPixel() int {
	if k == KindColor {
		return 4
	}
	return 1
}

// String returns a human-readable name for the page kind.
func (k PageKind) String() string {
	switch k {
	case KindMask:
		return "Mask"
	case KindColor:
		return "Color"
	default:
		return "Unknown"
	}
}

// Region is a rectangular pixel region within a single page.
type Region struct {
	X, Y          int
	Width, Height int
}

// IsValid reports whether the region has positive extents.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// union grows r to cover o. An invalid r adopts o unchanged.
func (r Region) union(o Region) Region {
	if !r.IsValid() {
		return o
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1 := max(r.X+r.Width, o.X+o.Width)
	y1 := max(r.Y+r.Height, o.Y+o.Height)
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Location identifies an allocated region within a page set: the page
// index (the value that goes into the instance record's page field) plus
// the region on that page. The region origin is the quad's UV origin in
// texels; shaders normalize it against the actual page dimensions.
type Location struct {
	Page   uint8
	Region Region
}
