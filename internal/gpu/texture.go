package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/kekelp/textslabs/atlas"
)

// ErrUnknownPageKind is returned for atlas page kinds with no texture
// format mapping.
var ErrUnknownPageKind = errors.New("textslabs: unknown atlas page kind")

// AtlasTextures mirrors one CPU-side atlas page set into a GPU array
// texture, one layer per page. Sync uploads only the dirty bounding box
// of each page; growing the page count recreates the texture and
// re-uploads every layer.
type AtlasTextures struct {
	device hal.Device
	queue  hal.Queue

	label  string
	format gputypes.TextureFormat
	bpp    int
	width  int
	height int

	texture hal.Texture
	view    hal.TextureView
	layers  int
}

// textureFormatFor maps an atlas page kind to its texture format.
func textureFormatFor(kind atlas.PageKind) (gputypes.TextureFormat, error) {
	switch kind {
	case atlas.KindMask:
		return gputypes.TextureFormatR8Unorm, nil
	case atlas.KindColor:
		return gputypes.TextureFormatRGBA8Unorm, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownPageKind, kind)
	}
}

// NewAtlasTextures creates the GPU mirror for a page set. A one-layer
// texture is allocated immediately so the view is always bindable, even
// before the first page exists.
func NewAtlasTextures(device hal.Device, queue hal.Queue, label string, set *atlas.PageSet) (*AtlasTextures, error) {
	format, err := textureFormatFor(set.Kind())
	if err != nil {
		return nil, err
	}

	w, h := set.PageSize()
	t := &AtlasTextures{
		device: device,
		queue:  queue,
		label:  label,
		format: format,
		bpp:    set.Kind().BytesPerPixel(),
		width:  w,
		height: h,
	}
	if err := t.recreate(1); err != nil {
		return nil, err
	}
	return t, nil
}

// View returns the array texture view for bind group creation. The view
// changes identity when Sync grows the layer count; callers rebuild
// their bind groups per frame.
func (t *AtlasTextures) View() hal.TextureView { return t.view }

// Layers returns the current array layer count.
func (t *AtlasTextures) Layers() int { return t.layers }

// Sync brings the GPU texture up to date with the page set. It grows
// the array when pages were added and uploads each page's dirty region.
// The grown report tells the caller its bind groups are stale.
//
// Page pixels and dirty state are read under the set's lock via
// ForEachPage, so Sync is consistent against concurrent allocations.
func (t *AtlasTextures) Sync(set *atlas.PageSet) (grown bool, err error) {
	count := set.PageCount()
	if count > t.layers {
		if err := t.recreate(count); err != nil {
			return false, err
		}
		grown = true
		slogger().Debug("atlas texture grown",
			"label", t.label, "layers", count)
	}

	set.ForEachPage(func(i int, page *atlas.Page) {
		if i >= t.layers {
			// Added after the growth check above; picked up next frame.
			return
		}
		if grown {
			// A fresh texture has no contents; upload the full page and
			// drop its dirty state.
			page.TakeDirty()
			t.uploadRegion(page, i, atlas.Region{Width: t.width, Height: t.height})
			return
		}
		if box, ok := page.TakeDirty(); ok {
			t.uploadRegion(page, i, box)
		}
	})
	return grown, nil
}

// uploadRegion writes one page's region into its array layer, reading
// strided rows straight out of the page's backing buffer.
func (t *AtlasTextures) uploadRegion(page *atlas.Page, layer int, box atlas.Region) {
	if box.Width <= 0 || box.Height <= 0 {
		return
	}
	stride := t.width * t.bpp

	t.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(box.X), Y: uint32(box.Y), Z: uint32(layer)},
			Aspect:   gputypes.TextureAspectAll,
		},
		page.Pixels(),
		&hal.ImageDataLayout{
			Offset:       uint64(box.Y*stride + box.X*t.bpp),
			BytesPerRow:  uint32(stride),
			RowsPerImage: uint32(t.height),
		},
		&hal.Extent3D{
			Width:              uint32(box.Width),
			Height:             uint32(box.Height),
			DepthOrArrayLayers: 1,
		},
	)
}

// recreate replaces the texture and view with a larger array. Existing
// GPU contents are discarded; Sync re-uploads every layer afterwards.
func (t *AtlasTextures) recreate(layers int) error {
	t.destroyTexture()

	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label: t.label,
		Size: hal.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: uint32(layers),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create %s texture: %w", t.label, err)
	}

	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           t.label + "_view",
		Format:          t.format,
		Dimension:       gputypes.TextureViewDimension2DArray,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(layers),
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return fmt.Errorf("create %s view: %w", t.label, err)
	}

	t.texture = tex
	t.view = view
	t.layers = layers
	return nil
}

func (t *AtlasTextures) destroyTexture() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
	t.layers = 0
}

// Destroy releases the texture and view. Safe to call multiple times.
func (t *AtlasTextures) Destroy() {
	t.destroyTexture()
}
