// Package detile converts a rectangular sub-region of a mapped scanout
// buffer from its source layout (linear or X-tiled, 4 KiB tiles) into a
// packed 24-bit RGB byte image in scanline order. This is component C1.
package detile

import (
	"screenrec.dev/screenrec/internal/framebuffer"
)

// tileWidthPx and tileHeightPx describe the 128x8-pixel, 4-bytes-per-pixel
// X-tiled layout (4096 bytes per tile).
const (
	tileWidthPx     = 128
	tileHeightPx    = 8
	tileBytes       = 4096
	tileRowBytes    = 512 // bytes per tile-row-of-8-scanlines within a tile
	bytesPerPixel32 = 4
)

// Strip describes one worker's immutable slice of work: it owns output
// rows [Y0,Y1) of Out, reading from absolute source rows [Geometry.Y+Y0,
// Geometry.Y+Y1).
type Strip struct {
	In       []byte
	Pitch    uint32
	Layout   framebuffer.Layout
	Geometry framebuffer.Geometry

	Out  []byte // packed w*h*3 RGB image, owned by the caller for the session
	Y0Y1 [2]uint32
}

// Run detiles Strip's output rows into Out. It is free of out-of-range
// reads or writes for any geometry admitted by framebuffer.Geometry.Resolve.
// The caller resolves fourcc/layout fallbacks once per session via
// framebuffer.View.ResolveFourCC/Layout, not per call.
func Run(s Strip) {
	w := s.Geometry.W
	y0, y1 := s.Y0Y1[0], s.Y0Y1[1]

	switch s.Layout {
	case framebuffer.LayoutLinear:
		runLinear(s.In, s.Pitch, s.Geometry.X, s.Geometry.Y, w, y0, y1, s.Out)
	case framebuffer.LayoutTiledX4KB:
		runTiledX(s.In, s.Pitch, s.Geometry.X, s.Geometry.Y, w, y0, y1, s.Out)
	default:
		runLinear(s.In, s.Pitch, s.Geometry.X, s.Geometry.Y, w, y0, y1, s.Out)
	}
}

// runLinear reads directly off the source bytes without an intermediate
// allocation, per spec §4.1. dstBase is computed from the absolute row dy,
// not dy-y0: out is the whole-image buffer shared by every worker's strip
// (internal/workerpool.Detile hands every worker the same Out slice), so a
// strip-relative offset would make every strip but the first overwrite
// row 0 instead of its own disjoint rows.
func runLinear(in []byte, pitch, x, y, w, y0, y1 uint32, out []byte) {
	for dy := y0; dy < y1; dy++ {
		srcY := y + dy
		rowBase := srcY*pitch + x*bytesPerPixel32
		dstBase := dy * w * 3
		for dx := uint32(0); dx < w; dx++ {
			src := rowBase + dx*bytesPerPixel32
			dst := dstBase + dx*3
			// BGRX source, emit R,G,B.
			out[dst+0] = in[src+2]
			out[dst+1] = in[src+1]
			out[dst+2] = in[src+0]
		}
	}
}

// runTiledX always reads through the tile-address formula (spec §4.1).
func runTiledX(in []byte, pitch, x, y, w, y0, y1 uint32, out []byte) {
	tileStride := pitch / tileRowBytes
	for dy := y0; dy < y1; dy++ {
		srcY := y + dy
		dstBase := dy * w * 3
		for dx := uint32(0); dx < w; dx++ {
			srcX := x + dx
			src := tiledSrcOffset(srcX, srcY, tileStride)
			dst := dstBase + dx*3
			out[dst+0] = in[src+2]
			out[dst+1] = in[src+1]
			out[dst+2] = in[src+0]
		}
	}
}

func tiledSrcOffset(x, y, tileStride uint32) uint32 {
	return (y/tileHeightPx)*tileBytes*tileStride +
		(x/tileWidthPx)*tileBytes +
		(y%tileHeightPx)*tileRowBytes +
		(x%tileWidthPx)*bytesPerPixel32
}
