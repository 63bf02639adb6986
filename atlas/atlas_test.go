package atlas

import (
	"bytes"
	"errors"
	"testing"
)

func TestShelfPackerPlacement(t *testing.T) {
	p := newShelfPacker(100, 100, 0)

	tests := []struct {
		name  string
		w, h  int
		wantX int
		wantY int
	}{
		{"first on first shelf", 30, 10, 0, 0},
		{"second on same shelf", 30, 10, 30, 0},
		{"third fills shelf", 40, 8, 60, 0},
		{"too wide opens new shelf", 50, 10, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.allocate(tt.w, tt.h)
			if !r.IsValid() {
				t.Fatalf("allocate(%d, %d) failed", tt.w, tt.h)
			}
			if r.X != tt.wantX || r.Y != tt.wantY {
				t.Errorf("region at (%d, %d), want (%d, %d)", r.X, r.Y, tt.wantX, tt.wantY)
			}
			if r.Width != tt.w || r.Height != tt.h {
				t.Errorf("region size %dx%d, want %dx%d", r.Width, r.Height, tt.w, tt.h)
			}
		})
	}
}

func TestShelfPackerRejects(t *testing.T) {
	p := newShelfPacker(64, 64, 1)

	if r := p.allocate(0, 10); r.IsValid() {
		t.Error("zero width allocation succeeded")
	}
	if r := p.allocate(64, 10); r.IsValid() {
		t.Error("allocation ignoring padding succeeded")
	}
	if r := p.allocate(10, 70); r.IsValid() {
		t.Error("over-tall allocation succeeded")
	}
}

func TestShelfPackerReset(t *testing.T) {
	p := newShelfPacker(64, 64, 0)
	if r := p.allocate(64, 64); !r.IsValid() {
		t.Fatal("full-page allocation failed")
	}
	if r := p.allocate(1, 1); r.IsValid() {
		t.Fatal("allocation on full packer succeeded")
	}
	p.reset()
	if r := p.allocate(64, 64); !r.IsValid() {
		t.Error("allocation after reset failed")
	}
}

func TestPageSetGrowsPages(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256, Padding: -1})

	loc1, err := s.Allocate(256, 256)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if loc1.Page != 0 {
		t.Errorf("first allocation on page %d, want 0", loc1.Page)
	}

	loc2, err := s.Allocate(256, 256)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if loc2.Page != 1 {
		t.Errorf("second allocation on page %d, want 1", loc2.Page)
	}
	if got := s.PageCount(); got != 2 {
		t.Errorf("PageCount = %d, want 2", got)
	}
}

func TestPageSetPageLimit(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256, Padding: -1})

	for i := 0; i < MaxPages; i++ {
		loc, err := s.Allocate(256, 256)
		if err != nil {
			t.Fatalf("Allocate page %d: %v", i, err)
		}
		if int(loc.Page) != i {
			t.Fatalf("allocation %d landed on page %d", i, loc.Page)
		}
	}

	_, err := s.Allocate(256, 256)
	if !errors.Is(err, ErrTooManyPages) {
		t.Errorf("Allocate past cap: %v, want ErrTooManyPages", err)
	}
}

func TestPageSetRegionTooLarge(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256})
	_, err := s.Allocate(512, 16)
	if !errors.Is(err, ErrRegionTooLarge) {
		t.Errorf("Allocate oversized: %v, want ErrRegionTooLarge", err)
	}
}

func TestPageSetUpload(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256})

	loc, err := s.Allocate(4, 2)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := s.Upload(loc, pix); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	page := s.Page(int(loc.Page))
	stride := page.Width() * KindMask.BytesPerPixel()
	row0 := loc.Region.Y*stride + loc.Region.X
	if got := page.Pixels()[row0 : row0+4]; !bytes.Equal(got, pix[:4]) {
		t.Errorf("row 0 = %v, want %v", got, pix[:4])
	}
	row1 := (loc.Region.Y+1)*stride + loc.Region.X
	if got := page.Pixels()[row1 : row1+4]; !bytes.Equal(got, pix[4:]) {
		t.Errorf("row 1 = %v, want %v", got, pix[4:])
	}

	if err := s.Upload(loc, pix[:5]); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short upload: %v, want ErrSizeMismatch", err)
	}
}

func TestPageSetColorStride(t *testing.T) {
	s := NewPageSet(KindColor, PageSetConfig{PageWidth: 256, PageHeight: 256})

	loc, err := s.AllocateAndUpload(2, 1, []byte{
		255, 0, 0, 255,
		0, 255, 0, 128,
	})
	if err != nil {
		t.Fatalf("AllocateAndUpload: %v", err)
	}

	page := s.Page(int(loc.Page))
	off := loc.Region.Y*page.Width()*4 + loc.Region.X*4
	if got := page.Pixels()[off+4 : off+8]; !bytes.Equal(got, []byte{0, 255, 0, 128}) {
		t.Errorf("second texel = %v", got)
	}
}

func TestPageDirtyTracking(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256, Padding: -1})
	page0 := func() *Page { return s.Page(0) }

	loc, _ := s.Allocate(4, 4)
	if err := s.Upload(loc, make([]byte, 16)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	loc2, _ := s.Allocate(4, 4)
	if err := s.Upload(loc2, make([]byte, 16)); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	box, ok := page0().TakeDirty()
	if !ok {
		t.Fatal("TakeDirty reported clean page after uploads")
	}
	// Both uploads land on the first shelf, so the box spans them.
	want := Region{X: 0, Y: 0, Width: 8, Height: 4}
	if box != want {
		t.Errorf("dirty box = %v, want %v", box, want)
	}

	if _, ok := page0().TakeDirty(); ok {
		t.Error("TakeDirty did not clear dirty state")
	}
}

func TestPageSetResetMarksFullDirty(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256})
	loc, _ := s.Allocate(4, 4)
	_ = s.Upload(loc, []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9})
	_, _ = s.Page(0).TakeDirty()

	s.Reset()

	box, ok := s.Page(0).TakeDirty()
	if !ok {
		t.Fatal("Reset did not mark page dirty")
	}
	if box.Width != 256 || box.Height != 256 {
		t.Errorf("dirty box after reset = %v, want full page", box)
	}
	for i, b := range s.Page(0).Pixels() {
		if b != 0 {
			t.Fatalf("pixel %d = %d after reset, want 0", i, b)
		}
	}
}

func TestPageSetClose(t *testing.T) {
	s := NewPageSet(KindMask, DefaultPageSetConfig())
	s.Close()
	if !s.IsClosed() {
		t.Error("IsClosed = false after Close")
	}
	if _, err := s.Allocate(4, 4); !errors.Is(err, ErrClosed) {
		t.Errorf("Allocate after Close: %v, want ErrClosed", err)
	}
	s.Close() // second close is a no-op
}

func TestPageSetForEachPage(t *testing.T) {
	s := NewPageSet(KindMask, PageSetConfig{PageWidth: 256, PageHeight: 256, Padding: -1})

	if _, err := s.AllocateAndUpload(256, 256, make([]byte, 256*256)); err != nil {
		t.Fatalf("AllocateAndUpload: %v", err)
	}
	loc, err := s.AllocateAndUpload(16, 16, make([]byte, 16*16))
	if err != nil {
		t.Fatalf("AllocateAndUpload: %v", err)
	}
	if loc.Page != 1 {
		t.Fatalf("second allocation on page %d, want 1", loc.Page)
	}

	var indices []int
	var dirtyPages []int
	s.ForEachPage(func(i int, page *Page) {
		indices = append(indices, i)
		// Dirty state is consistent under the set's lock; consuming it
		// here is the GPU sync path's access pattern.
		if _, ok := page.TakeDirty(); ok {
			dirtyPages = append(dirtyPages, i)
		}
	})

	if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
		t.Errorf("visited pages %v, want [0 1]", indices)
	}
	if len(dirtyPages) != 2 {
		t.Errorf("dirty pages %v, want both uploaded pages", dirtyPages)
	}

	s.ForEachPage(func(i int, page *Page) {
		if _, ok := page.TakeDirty(); ok {
			t.Errorf("page %d dirty again after consuming its state", i)
		}
	})
}
