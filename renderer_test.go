package textslabs

import (
	"errors"
	"image"
	"testing"

	"github.com/kekelp/textslabs/atlas"
	"github.com/kekelp/textslabs/glyph"
)

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(Config{})
	defer r.Close()

	if got := r.MaskPages().Kind(); got != atlas.KindMask {
		t.Fatalf("mask page kind = %v, want %v", got, atlas.KindMask)
	}
	if got := r.ColorPages().Kind(); got != atlas.KindColor {
		t.Fatalf("color page kind = %v, want %v", got, atlas.KindColor)
	}
	w, h := r.MaskPages().PageSize()
	if w != atlas.DefaultPageSize || h != atlas.DefaultPageSize {
		t.Fatalf("page size = %dx%d, want %dx%d defaults", w, h, atlas.DefaultPageSize, atlas.DefaultPageSize)
	}
}

func TestFrameStreamOrder(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 100, ScreenHeight: 100})
	r.AddSolidQuad(0, 0, 10, 10, [4]uint8{255, 0, 0, 255}, 0, NoClip())
	r.AddEllipse(Ellipse{X: 50, Y: 50, W: 20, H: 20, Color: [4]float32{0, 1, 0, 1}})
	r.AddSolidQuad(20, 20, 10, 10, [4]uint8{0, 0, 255, 255}, 0, NoClip())

	quads, ellipses, shapes, _ := r.Frame()
	if len(quads) != 2 || len(ellipses) != 1 {
		t.Fatalf("frame has %d quads, %d ellipses; want 2, 1", len(quads), len(ellipses))
	}
	want := []Shape{
		{Kind: ShapeTextQuad, Offset: 0},
		{Kind: ShapeEllipse, Offset: 0},
		{Kind: ShapeTextQuad, Offset: 1},
	}
	if len(shapes) != len(want) {
		t.Fatalf("shape stream length = %d, want %d", len(shapes), len(want))
	}
	for i, s := range shapes {
		if s != want[i] {
			t.Fatalf("shape[%d] = %+v, want %+v", i, s, want[i])
		}
	}
	if r.QuadCount() != 2 {
		t.Fatalf("QuadCount = %d, want 2", r.QuadCount())
	}
}

func TestBeginFrameResets(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	r.AddSolidQuad(0, 0, 4, 4, [4]uint8{255, 255, 255, 255}, 0, NoClip())
	r.AddEllipse(Ellipse{X: 8, Y: 8, W: 4, H: 4, Color: [4]float32{1, 1, 1, 1}})

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	quads, ellipses, shapes, _ := r.Frame()
	if len(quads) != 0 || len(ellipses) != 0 || len(shapes) != 0 {
		t.Fatalf("BeginFrame left %d quads, %d ellipses, %d shapes", len(quads), len(ellipses), len(shapes))
	}
}

func TestDepthRangeFiltersQuads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DepthRange = &DepthRange{Min: 0, Max: 1}
	r := NewRenderer(cfg)
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	r.AddSolidQuad(0, 0, 4, 4, [4]uint8{255, 255, 255, 255}, 0.5, NoClip())
	r.AddSolidQuad(0, 0, 4, 4, [4]uint8{255, 255, 255, 255}, 2.0, NoClip())

	if got := r.QuadCount(); got != 1 {
		t.Fatalf("QuadCount = %d, want 1 (out-of-range depth dropped)", got)
	}

	if err := r.AddBitmap(image.NewNRGBA(image.Rect(0, 0, 2, 2)), 0, 0, [4]uint8{255, 255, 255, 255}, 5.0, NoClip()); err != nil {
		t.Fatalf("AddBitmap: %v", err)
	}
	if got := r.QuadCount(); got != 1 {
		t.Fatalf("QuadCount after filtered bitmap = %d, want 1", got)
	}
	if got := r.ColorPages().PageCount(); got != 0 {
		t.Fatalf("filtered bitmap allocated %d color pages", got)
	}
}

func TestDepthRangeSkipsFilteredRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DepthRange = &DepthRange{Min: 0, Max: 1}
	r := NewRenderer(cfg)
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	runs := []glyph.Run{{
		FontID:     1,
		Rasterizer: &glyph.Rasterizer{},
		Size:       16,
		Color:      [4]uint8{255, 255, 255, 255},
		Depth:      5,
		Glyphs:     []glyph.Glyph{{GID: 3, X: 10, Y: 20}},
	}}
	if err := r.PrepareRuns(runs, NoClip(), false); err != nil {
		t.Fatalf("PrepareRuns: %v", err)
	}
	if got := r.QuadCount(); got != 0 {
		t.Fatalf("QuadCount = %d, want 0 (run outside depth range)", got)
	}
}

func TestPrepareRunsRequiresRasterizer(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	runs := []glyph.Run{{FontID: 1, Size: 16, Glyphs: []glyph.Glyph{{GID: 3}}}}
	if err := r.PrepareRuns(runs, NoClip(), false); err == nil {
		t.Fatal("PrepareRuns accepted a run with no rasterizer")
	}
}

func TestAddBitmapRendersThroughColorAtlas(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = 255 // opaque red
		src.Pix[i+3] = 255
	}

	r.BeginFrame(Params{ScreenWidth: 8, ScreenHeight: 8, SRGBSurface: true})
	if err := r.AddBitmap(src, 0, 0, [4]uint8{255, 255, 255, 255}, 0, NoClip()); err != nil {
		t.Fatalf("AddBitmap: %v", err)
	}
	if got := r.ColorPages().PageCount(); got != 1 {
		t.Fatalf("color PageCount = %d, want 1", got)
	}

	quads, _, _, _ := r.Frame()
	if len(quads) != 1 {
		t.Fatalf("frame has %d quads, want 1", len(quads))
	}
	if got := quads[0].ContentType(); got != ContentColor {
		t.Fatalf("bitmap quad content type = %v, want %v", got, ContentColor)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := r.RenderSoftware(dst); err != nil {
		t.Fatalf("RenderSoftware: %v", err)
	}
	off := dst.PixOffset(1, 1)
	got := [4]uint8{dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2], dst.Pix[off+3]}
	if got != [4]uint8{255, 0, 0, 255} {
		t.Fatalf("rendered bitmap pixel = %v, want opaque red", got)
	}
}

func TestResetAtlasesDropsPlacements(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	r.placements[glyph.Key{FontID: 1, GID: 2}] = glyphPlacement{page: 0, width: 4, height: 4}
	r.ResetAtlases()
	if len(r.placements) != 0 {
		t.Fatalf("ResetAtlases kept %d placements", len(r.placements))
	}
	if got := r.masks.Len(); got != 0 {
		t.Fatalf("ResetAtlases kept %d cached masks", got)
	}
}

func TestGPUOperationsWithoutDevice(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	defer r.Close()

	r.BeginFrame(Params{ScreenWidth: 64, ScreenHeight: 64})
	if err := r.LoadToGPU(); !errors.Is(err, ErrGPUNotReady) {
		t.Fatalf("LoadToGPU without device = %v, want ErrGPUNotReady", err)
	}
	if err := r.Render(nil); err == nil {
		t.Fatal("Render without a loaded frame succeeded")
	}
}

func TestClosedRenderer(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	r.Close()
	r.Close() // idempotent

	if err := r.PrepareRuns(nil, NoClip(), false); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("PrepareRuns after Close = %v, want ErrRendererClosed", err)
	}
	if err := r.LoadToGPU(); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("LoadToGPU after Close = %v, want ErrRendererClosed", err)
	}
	if err := r.AddBitmap(image.NewNRGBA(image.Rect(0, 0, 1, 1)), 0, 0, [4]uint8{}, 0, NoClip()); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("AddBitmap after Close = %v, want ErrRendererClosed", err)
	}

	r.AddQuad(Quad{Width: 1, Height: 1}) // no-op, must not panic
	if got := r.QuadCount(); got != 0 {
		t.Fatalf("closed renderer accepted a quad")
	}
}

func TestDepthRangeContainsBias(t *testing.T) {
	dr := DepthRange{Min: 0, Max: 128}
	if !dr.Contains(128) {
		t.Fatal("Contains rejected the exact upper bound")
	}
	if !dr.Contains(0) {
		t.Fatal("Contains rejected the exact lower bound")
	}
	if dr.Contains(129) {
		t.Fatal("Contains accepted a depth well past the bound")
	}
}
