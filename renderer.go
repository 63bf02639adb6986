package textslabs

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"

	"github.com/kekelp/textslabs/atlas"
	"github.com/kekelp/textslabs/glyph"
	"github.com/kekelp/textslabs/internal/composite"
	"github.com/kekelp/textslabs/internal/gpu"
)

// Renderer lifecycle and preparation errors.
var (
	// ErrRendererClosed is returned when operating on a closed renderer.
	ErrRendererClosed = errors.New("textslabs: renderer is closed")

	// ErrGPUNotReady is returned by GPU operations before a device is
	// attached via InitGPU or SetDeviceProvider.
	ErrGPUNotReady = errors.New("textslabs: no GPU device attached")

	// ErrAtlasReset is returned when an atlas ran out of pages and was
	// cleared mid-frame. Cached placements were dropped; the caller
	// rebuilds the frame (BeginFrame + re-prepare) and glyphs reallocate
	// into the fresh pages.
	ErrAtlasReset = errors.New("textslabs: atlas pages exhausted, atlas was reset")
)

// DepthRange is an optional filter on prepared records: quads and
// ellipses whose depth falls outside [Min, Max] are dropped at prepare
// time, the CPU-side equivalent of projecting their vertices off-screen.
// The interval is widened by a small ULP-scaled bias at each bound so
// depths recomputed exactly on a bound do not flicker in and out.
type DepthRange struct {
	Min, Max float32
}

// Contains reports whether depth lies inside the biased interval.
func (r DepthRange) Contains(depth float32) bool {
	cr := composite.DepthRange{Min: r.Min, Max: r.Max}
	return cr.Contains(depth)
}

// Config holds Renderer configuration. The zero value is usable; zero
// fields fall back to the defaults below.
type Config struct {
	// PageWidth, PageHeight is the atlas page size in pixels.
	// Defaults to atlas.DefaultPageSize.
	PageWidth  int
	PageHeight int

	// Padding is the spacing between atlas regions in pixels.
	// Defaults to atlas.DefaultPadding.
	Padding int

	// GlyphCacheCapacity is the rasterized-mask cache capacity per
	// shard (16 shards). <= 0 uses the cache default.
	GlyphCacheCapacity int

	// TargetFormat is the color format of the render target the
	// pipelines draw into. Defaults to BGRA8Unorm.
	TargetFormat gputypes.TextureFormat

	// SRGBSurface reports whether the target surface is sRGB-aware.
	// When false the fragment stage linearizes sampled colors itself.
	SRGBSurface bool

	// DepthRange optionally filters prepared records by depth.
	DepthRange *DepthRange
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		PageWidth:    atlas.DefaultPageSize,
		PageHeight:   atlas.DefaultPageSize,
		Padding:      atlas.DefaultPadding,
		TargetFormat: gputypes.TextureFormatBGRA8Unorm,
	}
}

// glyphPlacement is a mask glyph's resident atlas location plus the
// bitmap's placement relative to the glyph origin. empty marks glyphs
// with no ink (spaces), cached so they are not re-rasterized.
type glyphPlacement struct {
	page          uint8
	u, v          uint16
	width, height uint16
	left, top     int32
	empty         bool
}

// Renderer is the pipeline context: it owns the atlas page sets, the
// glyph mask cache, the per-frame instance lists, and (once a device is
// attached) the GPU pipelines and atlas textures. It is an explicitly
// owned value; create one per render target.
//
// A frame proceeds as BeginFrame, any number of PrepareRuns/Add* calls,
// LoadToGPU, then Render into the caller's render pass. The renderer is
// safe for concurrent use, though a frame's calls are normally issued
// from one goroutine in that order.
type Renderer struct {
	mu sync.Mutex

	cfg Config

	maskPages  *atlas.PageSet
	colorPages *atlas.PageSet
	masks      *glyph.Cache
	placements map[glyph.Key]glyphPlacement

	// Frame state, rebuilt between BeginFrame and LoadToGPU.
	params      Params
	quads       []Quad
	ellipses    []Ellipse
	shapes      []Shape
	hasEllipses bool

	// GPU state, nil until a device is attached.
	instance   hal.Instance
	device     hal.Device
	queue      hal.Queue
	ownsDevice bool
	gpuReady   bool

	quadPipe  *gpu.QuadPipeline
	shapePipe *gpu.ShapePipeline
	maskTex   *gpu.AtlasTextures
	colorTex  *gpu.AtlasTextures
	frame     *frameResources

	closed bool
}

// NewRenderer creates a renderer with CPU-side state only. Attach a GPU
// device with InitGPU or SetDeviceProvider before LoadToGPU/Render; the
// prepare path and the software compositor work without one.
func NewRenderer(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.PageWidth <= 0 {
		cfg.PageWidth = def.PageWidth
	}
	if cfg.PageHeight <= 0 {
		cfg.PageHeight = def.PageHeight
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	} else if cfg.Padding == 0 {
		cfg.Padding = def.Padding
	}
	if cfg.TargetFormat == 0 {
		cfg.TargetFormat = def.TargetFormat
	}

	pageCfg := atlas.PageSetConfig{
		PageWidth:  cfg.PageWidth,
		PageHeight: cfg.PageHeight,
		Padding:    cfg.Padding,
	}
	return &Renderer{
		cfg:        cfg,
		maskPages:  atlas.NewPageSet(atlas.KindMask, pageCfg),
		colorPages: atlas.NewPageSet(atlas.KindColor, pageCfg),
		masks:      glyph.NewCache(cfg.GlyphCacheCapacity),
		placements: make(map[glyph.Key]glyphPlacement),
	}
}

// InitGPU opens a standalone GPU device owned by the renderer. Use
// SetDeviceProvider instead when the host application already has one.
func (r *Renderer) InitGPU() error {
	instance, device, queue, err := openOwnDevice()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		instance.Destroy()
		return ErrRendererClosed
	}
	r.instance = instance
	return r.attachDeviceLocked(device, queue, true)
}

// SetDeviceProvider attaches a shared GPU device from a host provider
// (see DeviceHandle). The renderer does not own shared resources and
// will not destroy them on Close.
func (r *Renderer) SetDeviceProvider(provider any) error {
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	return r.attachDeviceLocked(device, queue, false)
}

func (r *Renderer) attachDeviceLocked(device hal.Device, queue hal.Queue, owns bool) error {
	r.destroyGPULocked()
	r.device = device
	r.queue = queue
	r.ownsDevice = owns

	quadPipe, err := gpu.NewQuadPipeline(device, queue, r.cfg.TargetFormat)
	if err != nil {
		return fmt.Errorf("textslabs: quad pipeline: %w", err)
	}
	r.quadPipe = quadPipe

	shapePipe, err := gpu.NewShapePipeline(device, queue, r.cfg.TargetFormat)
	if err != nil {
		r.destroyGPULocked()
		return fmt.Errorf("textslabs: shape pipeline: %w", err)
	}
	r.shapePipe = shapePipe

	maskTex, err := gpu.NewAtlasTextures(device, queue, "mask_atlas", r.maskPages)
	if err != nil {
		r.destroyGPULocked()
		return fmt.Errorf("textslabs: mask atlas textures: %w", err)
	}
	r.maskTex = maskTex

	colorTex, err := gpu.NewAtlasTextures(device, queue, "color_atlas", r.colorPages)
	if err != nil {
		r.destroyGPULocked()
		return fmt.Errorf("textslabs: color atlas textures: %w", err)
	}
	r.colorTex = colorTex

	r.gpuReady = true
	Logger().Info("GPU device attached", "shared", !owns)
	return nil
}

// BeginFrame resets the frame's instance lists and sets the per-frame
// uniform parameters.
func (r *Renderer) BeginFrame(params Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = params
	r.quads = r.quads[:0]
	r.ellipses = r.ellipses[:0]
	r.shapes = r.shapes[:0]
	r.hasEllipses = false
}

// PrepareRuns rasterizes, atlases, and encodes already-shaped glyph
// runs into the current frame. Every emitted quad carries the given
// clip rectangle; scalarFade enables the clip-edge alpha ramp.
//
// Color (bitmap) glyphs cannot be rasterized from outlines; they are
// skipped with a warning, and callers supply their bitmaps through
// AddBitmap instead.
func (r *Renderer) PrepareRuns(runs []glyph.Run, clip ClipRect, scalarFade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}

	for i := range runs {
		if err := r.prepareRunLocked(&runs[i], clip, scalarFade); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) prepareRunLocked(run *glyph.Run, clip ClipRect, scalarFade bool) error {
	if run.Rasterizer == nil {
		return errors.New("textslabs: run has no rasterizer")
	}
	if r.cfg.DepthRange != nil && !r.cfg.DepthRange.Contains(run.Depth) {
		return nil
	}

	flags := MakeFlags(ContentMask, scalarFade, 0)
	packed := PackColorRGBA(run.Color[0], run.Color[1], run.Color[2], run.Color[3])

	for _, g := range run.Glyphs {
		key, px := glyph.NewKey(run.FontID, g.GID, run.Size, g.X)

		pl, err := r.placementForLocked(key, run.Rasterizer)
		if err != nil {
			if errors.Is(err, glyph.ErrColoredGlyph) {
				Logger().Warn("skipping color glyph; supply its bitmap via AddBitmap",
					"font", run.FontID, "gid", g.GID)
				continue
			}
			return err
		}
		if pl.empty {
			continue
		}

		baseline := int32(math.Floor(float64(g.Y)))
		r.appendQuadLocked(Quad{
			X:      px + pl.left,
			Y:      baseline + pl.top,
			Width:  pl.width,
			Height: pl.height,
			U:      pl.u,
			V:      pl.v,
			Color:  packed,
			Depth:  run.Depth,
			Flags:  flags,
			Page:   pl.page,
			Clip:   clip,
		})
	}
	return nil
}

// placementForLocked returns the glyph's atlas placement, rasterizing
// and uploading on first use.
func (r *Renderer) placementForLocked(key glyph.Key, rast *glyph.Rasterizer) (glyphPlacement, error) {
	if pl, ok := r.placements[key]; ok {
		return pl, nil
	}

	m, err := r.masks.GetOrRasterize(key, rast)
	if err != nil {
		return glyphPlacement{}, err
	}
	if m.Image == nil {
		pl := glyphPlacement{empty: true}
		r.placements[key] = pl
		return pl, nil
	}

	b := m.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := m.Image.Pix
	if m.Image.Stride != w {
		pix = repackAlpha(m.Image)
	}

	loc, err := r.maskPages.AllocateAndUpload(w, h, pix)
	if err != nil {
		if errors.Is(err, atlas.ErrTooManyPages) {
			r.resetAtlasesLocked()
			return glyphPlacement{}, ErrAtlasReset
		}
		return glyphPlacement{}, err
	}

	pl := glyphPlacement{
		page:   loc.Page,
		u:      uint16(loc.Region.X),
		v:      uint16(loc.Region.Y),
		width:  uint16(w),
		height: uint16(h),
		left:   m.Left,
		top:    m.Top,
	}
	r.placements[key] = pl
	return pl, nil
}

// AddBitmap uploads an image into the color atlas and emits a color
// quad at (x, y). tint multiplies the sampled texels component-wise;
// use opaque white for unmodified rendering. The image is converted to
// straight-alpha RGBA for upload; callers cache placements themselves
// if they draw the same bitmap repeatedly.
func (r *Renderer) AddBitmap(img image.Image, x, y int32, tint [4]uint8, depth float32, clip ClipRect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if r.cfg.DepthRange != nil && !r.cfg.DepthRange.Contains(depth) {
		return nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, xdraw.Src)

	loc, err := r.colorPages.AllocateAndUpload(w, h, nrgba.Pix)
	if err != nil {
		if errors.Is(err, atlas.ErrTooManyPages) {
			r.resetAtlasesLocked()
			return ErrAtlasReset
		}
		return err
	}

	r.appendQuadLocked(Quad{
		X:      x,
		Y:      y,
		Width:  uint16(w),
		Height: uint16(h),
		U:      uint16(loc.Region.X),
		V:      uint16(loc.Region.Y),
		Color:  PackColorRGBA(tint[0], tint[1], tint[2], tint[3]),
		Depth:  depth,
		Flags:  MakeFlags(ContentColor, false, 0),
		Page:   loc.Page,
		Clip:   clip,
	})
	return nil
}

// AddSolidQuad emits a solid-fill rectangle with no atlas access.
func (r *Renderer) AddSolidQuad(x, y int32, width, height uint16, rgba [4]uint8, depth float32, clip ClipRect) {
	r.AddQuad(Quad{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Color:  PackColorRGBA(rgba[0], rgba[1], rgba[2], rgba[3]),
		Depth:  depth,
		Flags:  MakeFlags(ContentSolid, false, 0),
		Clip:   clip,
	})
}

// AddQuad appends a fully specified instance record to the frame.
func (r *Renderer) AddQuad(q Quad) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.cfg.DepthRange != nil && !r.cfg.DepthRange.Contains(q.Depth) {
		return
	}
	r.appendQuadLocked(q)
}

// AddEllipse appends an ellipse to the frame. Frames containing
// ellipses render through the multiplexed shape pipeline.
func (r *Renderer) AddEllipse(e Ellipse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	// Ellipse records carry no depth, so the depth-range filter never
	// applies to them.
	r.shapes = append(r.shapes, Shape{Kind: ShapeEllipse, Offset: uint32(len(r.ellipses))})
	r.ellipses = append(r.ellipses, e)
	r.hasEllipses = true
}

func (r *Renderer) appendQuadLocked(q Quad) {
	r.shapes = append(r.shapes, Shape{Kind: ShapeTextQuad, Offset: uint32(len(r.quads))})
	r.quads = append(r.quads, q)
}

// QuadCount returns the number of instance records in the current frame.
func (r *Renderer) QuadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.quads)
}

// Frame returns the current frame's instance lists for software
// compositing or inspection. The slices alias the renderer's state and
// are valid until the next BeginFrame.
func (r *Renderer) Frame() (quads []Quad, ellipses []Ellipse, shapes []Shape, params Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quads, r.ellipses, r.shapes, r.params
}

// MaskPages returns the mask atlas page set.
func (r *Renderer) MaskPages() *atlas.PageSet { return r.maskPages }

// ColorPages returns the color atlas page set.
func (r *Renderer) ColorPages() *atlas.PageSet { return r.colorPages }

// ResetAtlases drops every atlas allocation, the placement index, and
// the rasterized-mask cache. Glyphs re-rasterize and reallocate on the
// next prepare.
func (r *Renderer) ResetAtlases() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.resetAtlasesLocked()
}

func (r *Renderer) resetAtlasesLocked() {
	r.maskPages.Reset()
	r.colorPages.Reset()
	r.placements = make(map[glyph.Key]glyphPlacement)
	r.masks.Clear()
	Logger().Warn("atlas reset",
		"maskPages", r.maskPages.PageCount(),
		"colorPages", r.colorPages.PageCount())
}

// LoadToGPU uploads the frame to the GPU: the params uniform, the
// instance and storage buffers, and every dirty atlas page region. The
// previous frame's buffers are released.
func (r *Renderer) LoadToGPU() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if !r.gpuReady {
		return ErrGPUNotReady
	}

	if r.frame != nil {
		r.frame.destroy(r.device)
		r.frame = nil
	}

	if _, err := r.maskTex.Sync(r.maskPages); err != nil {
		return err
	}
	if _, err := r.colorTex.Sync(r.colorPages); err != nil {
		return err
	}

	frame, err := r.buildFrameLocked()
	if err != nil {
		return err
	}
	r.frame = frame

	Logger().Debug("frame loaded",
		"quads", len(r.quads), "ellipses", len(r.ellipses), "shapes", len(r.shapes))
	return nil
}

// Render records the frame's draws into an existing render pass. The
// pass, its target, and its lifetime belong to the caller. Frames with
// ellipses draw through the shape pipeline; quad-only frames use the
// leaner quad pipeline.
func (r *Renderer) Render(rp hal.RenderPassEncoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if r.frame == nil {
		return errors.New("textslabs: no frame loaded; call LoadToGPU first")
	}

	f := r.frame
	if f.useShapes {
		r.shapePipe.RecordDraws(rp, f.shapeAtlasBind, f.shapeStorageBind, f.shapeBuf, f.shapeCount)
	} else {
		r.quadPipe.RecordDraws(rp, f.quadBind, f.quadBuf, f.quadCount)
	}
	return nil
}

// Close releases all resources. Shared GPU devices are not destroyed.
// Safe to call multiple times.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.destroyGPULocked()
	if r.ownsDevice {
		if r.device != nil {
			r.device.Destroy()
		}
		if r.instance != nil {
			r.instance.Destroy()
		}
	}
	r.device = nil
	r.queue = nil
	r.instance = nil
	r.maskPages.Close()
	r.colorPages.Close()
	r.masks.Clear()
	r.placements = nil
	r.closed = true
}

func (r *Renderer) destroyGPULocked() {
	if r.frame != nil && r.device != nil {
		r.frame.destroy(r.device)
		r.frame = nil
	}
	if r.colorTex != nil {
		r.colorTex.Destroy()
		r.colorTex = nil
	}
	if r.maskTex != nil {
		r.maskTex.Destroy()
		r.maskTex = nil
	}
	if r.shapePipe != nil {
		r.shapePipe.Destroy()
		r.shapePipe = nil
	}
	if r.quadPipe != nil {
		r.quadPipe.Destroy()
		r.quadPipe = nil
	}
	r.gpuReady = false
}

// repackAlpha copies a strided alpha image into a tightly packed buffer.
func repackAlpha(img *image.Alpha) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)
	for row := 0; row < h; row++ {
		src := img.Pix[row*img.Stride : row*img.Stride+w]
		copy(out[row*w:], src)
	}
	return out
}
