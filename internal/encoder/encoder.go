// Package encoder is the thin contract over the external H.264 encoder
// (component C4). The encoder itself — preset, profile, colorspace,
// annex-b framing — is an external collaborator per spec §1; this
// package only defines the interface the recording driver depends on
// and, on Linux, a concrete implementation backed by libx264 through
// ffmpeg-statigo.
package encoder

import "errors"

// ErrConfig is returned when any configuration step fails; fatal to a
// recording session (spec §7).
var ErrConfig = errors.New("encoder configuration failed")

// Config describes the fixed, session-lifetime encoder configuration
// (spec §4.4): 8-bit depth, RGB color space, non-VFR input, no repeated
// headers, Annex-B framing, profile "high444".
type Config struct {
	Width, Height uint32
	Preset        string // default "medium"
}

// Encoder is the contract the recording driver (C7) depends on.
type Encoder interface {
	// Headers returns the out-of-band SPS and PPS NAL units, available
	// before any frame is submitted.
	Headers() ([]NAL, error)

	// Encode submits one packed RGB frame with an integer presentation
	// timestamp and returns zero or more output NALs.
	Encode(rgb []byte, pts int64) ([]NAL, error)

	Close() error
}
