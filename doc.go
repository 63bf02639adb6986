// Package textslabs implements a GPU compositing pipeline for text quads
// and simple shapes over the gogpu/wgpu HAL.
//
// The package sits between an upstream text layout/caching collaborator and
// the GPU: the upstream side supplies already-shaped glyph runs and bitmaps;
// textslabs packs per-instance draw attributes into dense binary vertex
// records, tracks multi-page glyph atlases (alpha masks and color bitmaps),
// and owns the vertex/fragment stage logic that expands each record into a
// clipped, edge-faded, correctly sampled screen-space quad.
//
// The same stage logic exists twice, deliberately kept in lockstep:
//
//   - WGSL shader sources embedded in internal/gpu (the production path),
//   - pure Go reference functions in internal/composite (the software
//     compositor and the test oracle).
//
// The binary instance-record layout is the wire contract between the two
// sides. See Quad for the canonical record layout and the codec functions
// (PackUint16Pair, SplitInt16Pair, PackFlagsPage, ...) for the bit-level
// encoding rules.
//
// Shaping, bidi, line breaking and font loading are out of scope; use
// go-text/typesetting (or any equivalent) upstream and hand the results to
// Renderer.PrepareRuns.
package textslabs
