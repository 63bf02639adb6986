package textslabs

// Packed attribute codec.
//
// Instance records squeeze several logical fields into single 32-bit words to
// keep the per-quad vertex stride small. The functions here are the only
// place the bit layout is spelled out; the WGSL shaders in internal/gpu
// carry the mirror-image decode and must stay in lockstep with this file.
//
// All packing is silent-wrapping: values outside the stated bit ranges are
// truncated per unsigned-modulo / two's-complement semantics. Producers are
// responsible for never emitting out-of-range values; the codec performs no
// dynamic range check.

// Format capacity invariants. These are properties of the packed record
// layout itself, not runtime configuration.
const (
	// MaxPageIndex is the largest atlas page index representable in the
	// 8-bit page field of a flags-and-page word.
	MaxPageIndex = 255

	// MaxFlags is the largest flag value representable in the 24-bit low
	// field of a flags-and-page word.
	MaxFlags = 1<<24 - 1
)

// PackUint16Pair packs two unsigned 16-bit components into one 32-bit word,
// lo in the low 16 bits and hi in the high 16 bits.
func PackUint16Pair(lo, hi uint16) uint32 {
	return uint32(lo) | uint32(hi)<<16
}

// SplitUint16Pair decodes the two unsigned 16-bit components of a packed
// word. Components are returned as float32 for shader-style arithmetic;
// every uint16 value is exactly representable in float32, so the round trip
// through PackUint16Pair is exact.
func SplitUint16Pair(w uint32) (lo, hi float32) {
	return float32(w & 0xFFFF), float32(w >> 16)
}

// PackInt16Pair packs two signed 16-bit components into one 32-bit word
// using their two's-complement bit patterns, lo in the low 16 bits and hi
// in the high 16 bits.
func PackInt16Pair(lo, hi int16) uint32 {
	return uint32(uint16(lo)) | uint32(uint16(hi))<<16
}

// SplitInt16Pair decodes two signed 16-bit components from a packed word.
// Each half is reinterpreted as two's-complement: raw values >= 32768 are
// biased by -65536. Exact for the full signed range [-32768, 32767].
func SplitInt16Pair(w uint32) (lo, hi float32) {
	lo = float32(w & 0xFFFF)
	hi = float32(w >> 16)
	if lo >= 32768 {
		lo -= 65536
	}
	if hi >= 32768 {
		hi -= 65536
	}
	return lo, hi
}

// PackFlagsPage combines a 24-bit flag field and an 8-bit atlas page index
// into a single word: flags in the low 24 bits, page in the high 8 bits.
// Flag bits above bit 23 are silently dropped.
func PackFlagsPage(flags uint32, page uint8) uint32 {
	return flags&MaxFlags | uint32(page)<<24
}

// UnpackFlags extracts the 24-bit flag field from a flags-and-page word.
func UnpackFlags(w uint32) uint32 {
	return w & MaxFlags
}

// UnpackPageIndex extracts the 8-bit atlas page index from a flags-and-page
// word.
func UnpackPageIndex(w uint32) uint8 {
	return uint8(w >> 24)
}

// PackColorRGBA packs four 8-bit channels into one word, red in the high
// byte down to alpha in the low byte.
func PackColorRGBA(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// UnpackColorRGBA decodes a packed color word into normalized [0,1]
// channels, mirroring the shader-side unpack.
func UnpackColorRGBA(w uint32) (r, g, b, a float32) {
	const inv = 1.0 / 255.0
	r = float32(w>>24&0xFF) * inv
	g = float32(w>>16&0xFF) * inv
	b = float32(w>>8&0xFF) * inv
	a = float32(w&0xFF) * inv
	return r, g, b, a
}
