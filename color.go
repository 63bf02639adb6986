package textslabs

// ColorBrush is an 8-bit-per-channel RGBA color in sRGB space, the color
// form carried by upstream styling. Channel order is R, G, B, A.
type ColorBrush [4]uint8

// Packed returns the brush in the wire form used by instance records:
// red in the high byte down to alpha in the low byte.
func (c ColorBrush) Packed() uint32 {
	return PackColorRGBA(c[0], c[1], c[2], c[3])
}

// Common brushes.
var (
	White = ColorBrush{255, 255, 255, 255}
	Black = ColorBrush{0, 0, 0, 255}

	// DebugMagenta is the fixed fallback color rendered for unrecognized
	// content-type or shape-kind values.
	DebugMagenta = ColorBrush{255, 0, 255, 255}
)
