// Package framebuffer describes the contract the record pipeline needs
// from device discovery / framebuffer acquisition, which spec.md §1
// scopes out of the core as an external collaborator. The core only
// consumes the values named here.
package framebuffer

import (
	"errors"

	"screenrec.dev/screenrec/internal/debuglog"
)

var errGeometryOutOfBounds = errors.New("geometry out of bounds")

// PixelFormat is a fourcc pixel format code. Only XR24 is supported;
// anything else reported by the acquiring collaborator is treated as
// XR24, with a warning, by View.ResolveFourCC.
type PixelFormat uint32

// FourCC code for 32-bit BGRX ("XR24" little-endian packed as a fourcc).
const FourCCXR24 PixelFormat = 0x34325258

// Modifier encodes a DRM format modifier: vendor in the high byte,
// vendor-specific code in the low 56 bits.
type Modifier uint64

const (
	ModifierLinear     Modifier = 0
	ModifierVendorNone          = 0
)

// ModifierVendor extracts the vendor byte from a modifier.
func ModifierVendor(m Modifier) uint8 { return uint8(m >> 56) }

// ModifierValue extracts the vendor-specific low 56 bits of a modifier.
func ModifierValue(m Modifier) uint64 { return uint64(m) & 0x00ffffffffffffff }

// Layout is the address-function family the detiler understands.
type Layout int

const (
	LayoutLinear Layout = iota
	LayoutTiledX4KB
)

// View is a read-only mapped byte range over a GPU scanout buffer, plus
// the geometry needed to address it, as supplied by the out-of-scope
// device-discovery collaborator.
type View struct {
	Width      uint32
	Height     uint32
	PitchBytes uint32
	FourCC     PixelFormat
	Modifier   Modifier
	RefreshHz  float64

	// DevicePath is the DRM node the view was acquired from. The vblank
	// clock (component C3, in scope) opens its own handle on this path
	// rather than sharing the acquisition collaborator's fd.
	DevicePath string

	// Bytes is the mapped read-only byte range covering the buffer.
	// Its length must be at least PitchBytes*Height.
	Bytes []byte
}

// Source is the interface the recording driver depends on to acquire a
// framebuffer view. Device discovery and framebuffer export (the real
// DRM/dma-buf plumbing) live in internal/drmsrc and are outside the
// core's concern; the driver only ever talks to this interface.
type Source interface {
	// Open acquires the primary display's scanout buffer and returns a
	// read-only mapped view over it. The returned View.Bytes must remain
	// valid and stable until Close is called.
	Open() (*View, error)

	// Close releases the mapping and any associated handles/fds.
	Close() error
}

// Geometry is a sub-rectangle of the framebuffer, fixed for the
// lifetime of a recording session (spec §3).
type Geometry struct {
	X, Y, W, H uint32
}

// Resolve fills in W/H defaults ("to the right/bottom edge") and
// validates the rectangle against the framebuffer's dimensions.
func (g Geometry) Resolve(fbWidth, fbHeight uint32) (Geometry, error) {
	r := g
	if r.W == 0 {
		if r.X > fbWidth {
			return Geometry{}, errGeometryOutOfBounds
		}
		r.W = fbWidth - r.X
	}
	if r.H == 0 {
		if r.Y > fbHeight {
			return Geometry{}, errGeometryOutOfBounds
		}
		r.H = fbHeight - r.Y
	}
	if r.W == 0 || r.H == 0 || r.X+r.W > fbWidth || r.Y+r.H > fbHeight {
		return Geometry{}, errGeometryOutOfBounds
	}
	return r, nil
}

// ResolveFourCC returns FourCCXR24, warning once if the acquired view
// reports an unsupported fourcc (spec §4.1). Called once at session
// start, not per frame.
func (v *View) ResolveFourCC() PixelFormat {
	if v.FourCC != FourCCXR24 {
		debuglog.Warnf("unsupported fourcc %#x, proceeding as XR24", uint32(v.FourCC))
	}
	return FourCCXR24
}

// Layout resolves the addressing layout for a view's modifier, warning
// and falling back to linear for anything unrecognized (spec §4.1).
func (v *View) Layout() Layout {
	switch {
	case v.Modifier == ModifierLinear:
		return LayoutLinear
	case ModifierVendor(v.Modifier) != 0 && ModifierValue(v.Modifier) == 1:
		return LayoutTiledX4KB
	default:
		debuglog.Warnf("unsupported layout modifier %#x, proceeding as linear", uint64(v.Modifier))
		return LayoutLinear
	}
}
