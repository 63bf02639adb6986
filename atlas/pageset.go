package atlas

import (
	"fmt"
	"sync"
)

// PageSetConfig holds configuration for creating a PageSet.
type PageSetConfig struct {
	// PageWidth is the page width in pixels. Defaults to DefaultPageSize.
	PageWidth int

	// PageHeight is the page height in pixels. Defaults to DefaultPageSize.
	PageHeight int

	// Padding is the spacing between packed regions.
	// Defaults to DefaultPadding; negative values are treated as zero.
	Padding int
}

// DefaultPageSetConfig returns the default page set configuration.
func DefaultPageSetConfig() PageSetConfig {
	return PageSetConfig{
		PageWidth:  DefaultPageSize,
		PageHeight: DefaultPageSize,
		Padding:    DefaultPadding,
	}
}

// PageSet is a growable collection of same-kind atlas pages. Allocation
// walks existing pages and appends a new page when none fits, up to
// MaxPages. Individual regions are never freed; Reset clears the whole
// set at once and the owner re-rasterizes on demand.
//
// PageSet is safe for concurrent use.
type PageSet struct {
	mu sync.Mutex

	kind    PageKind
	pageW   int
	pageH   int
	padding int

	pages  []*Page
	closed bool
}

// NewPageSet creates a page set of the given kind. Zero-value config
// fields fall back to defaults; undersized pages are rounded up to
// MinPageSize.
func NewPageSet(kind PageKind, config PageSetConfig) *PageSet {
	w := config.PageWidth
	if w <= 0 {
		w = DefaultPageSize
	} else if w < MinPageSize {
		w = MinPageSize
	}

	h := config.PageHeight
	if h <= 0 {
		h = DefaultPageSize
	} else if h < MinPageSize {
		h = MinPageSize
	}

	padding := config.Padding
	if padding < 0 {
		padding = 0
	} else if config.Padding == 0 {
		padding = DefaultPadding
	}

	return &PageSet{
		kind:    kind,
		pageW:   w,
		pageH:   h,
		padding: padding,
	}
}

// Kind returns the pixel format kind shared by all pages in the set.
func (s *PageSet) Kind() PageKind { return s.kind }

// PageSize returns the dimensions shared by all pages in the set.
func (s *PageSet) PageSize() (width, height int) { return s.pageW, s.pageH }

// PageCount returns the number of pages currently in the set.
func (s *PageSet) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Page returns the page at the given index, or nil if out of range.
// The returned page's pixel buffer and dirty state are not covered by
// the set's lock; callers that mix reads with concurrent uploads must
// serialize externally or use ForEachPage.
func (s *PageSet) Page(index int) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return nil
	}
	return s.pages[index]
}

// ForEachPage calls fn for each page in index order while holding the
// set's lock, so fn observes a consistent view of every page's pixels
// and dirty state against concurrent Upload and Reset calls. fn must
// not call back into the set.
func (s *PageSet) ForEachPage(fn func(index int, page *Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, page := range s.pages {
		fn(i, page)
	}
}

// Allocate finds space for a width x height region, growing the set by
// one page when no existing page fits. It returns ErrRegionTooLarge for
// regions that could never fit a page, and ErrTooManyPages when the set
// is already at the MaxPages cap.
func (s *PageSet) Allocate(width, height int) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Location{}, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return Location{}, fmt.Errorf("%w: %dx%d", ErrSizeMismatch, width, height)
	}
	if width+s.padding > s.pageW || height+s.padding > s.pageH {
		return Location{}, fmt.Errorf("%w: %dx%d on %dx%d pages",
			ErrRegionTooLarge, width, height, s.pageW, s.pageH)
	}

	for i, page := range s.pages {
		if r := page.packer.allocate(width, height); r.IsValid() {
			return Location{Page: uint8(i), Region: r}, nil
		}
	}

	if len(s.pages) >= MaxPages {
		return Location{}, ErrTooManyPages
	}

	page := newPage(s.kind, s.pageW, s.pageH, s.padding)
	s.pages = append(s.pages, page)

	r := page.packer.allocate(width, height)
	if !r.IsValid() {
		// Cannot happen: the size was checked against the page bounds.
		return Location{}, ErrPageFull
	}
	return Location{Page: uint8(len(s.pages) - 1), Region: r}, nil
}

// Upload copies tightly packed pixel data into an allocated location.
// len(pix) must equal Region.Width * Region.Height * Kind().BytesPerPixel().
func (s *PageSet) Upload(loc Location, pix []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if int(loc.Page) >= len(s.pages) {
		return fmt.Errorf("%w: page %d of %d", ErrRegionOutOfBounds, loc.Page, len(s.pages))
	}
	return s.pages[loc.Page].upload(loc.Region, pix)
}

// AllocateAndUpload combines Allocate and Upload.
func (s *PageSet) AllocateAndUpload(width, height int, pix []byte) (Location, error) {
	loc, err := s.Allocate(width, height)
	if err != nil {
		return Location{}, err
	}
	if err := s.Upload(loc, pix); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Reset discards every allocation in the set. Page pixel buffers are
// cleared and marked fully dirty; previously returned Locations become
// invalid and their entries must be dropped from any caller-side index.
func (s *PageSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for _, page := range s.pages {
		page.reset()
	}
}

// Close releases the page set. Further operations return ErrClosed.
func (s *PageSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pages = nil
	s.closed = true
}

// IsClosed reports whether the page set has been closed.
func (s *PageSet) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
