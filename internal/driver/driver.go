// Package driver implements component C7: the top-level recording loop
// that sequences the vblank clock, the detile worker pool, the encoder
// adapter and the Matroska muxer, applies the cluster-rollover policy,
// watches standard input for the stop signal, and performs finalization
// (spec §4.7).
package driver

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"screenrec.dev/screenrec/internal/cue"
	"screenrec.dev/screenrec/internal/debuglog"
	"screenrec.dev/screenrec/internal/encoder"
	"screenrec.dev/screenrec/internal/framebuffer"
	"screenrec.dev/screenrec/internal/mkv"
	"screenrec.dev/screenrec/internal/vblank"
	"screenrec.dev/screenrec/internal/workerpool"
)

// ErrConfig is returned for any fatal setup failure (resource acquisition
// or encoder/muxer configuration), per spec §7.
var ErrConfig = errors.New("recording configuration failed")

// maxSize28 is the largest value the 28-bit EBML data-size marker can
// hold; a NAL whose framed size would exceed it is dropped with a
// warning rather than corrupting the container (spec §4.7's oversize
// guard).
const maxSize28 = 0x0FFFFFFF

// Config is everything the driver needs to run one recording session.
type Config struct {
	Source     framebuffer.Source
	Geometry   framebuffer.Geometry
	Interval   uint32 // recording-every-th vblanks, 1..9
	Preset     string
	OutputPath string

	// NewEncoder, NewDRMWaiter and StopCheck are injected so tests can
	// substitute fakes; the production caller (cmd/screenrec) leaves them nil
	// and get the real Linux implementations and the real stdin poll.
	NewEncoder   func(encoder.Config) (encoder.Encoder, error)
	NewDRMWaiter func(devicePath string) (vblank.Waiter, error)
	StopCheck    func() (bool, error)
}

// Run acquires the framebuffer, configures the encoder and muxer, and
// blocks until standard input becomes readable or a fatal error occurs.
func Run(cfg Config) error {
	view, err := cfg.Source.Open()
	if err != nil {
		return fmt.Errorf("%w: acquire framebuffer: %v", ErrConfig, err)
	}
	defer cfg.Source.Close()

	geometry, err := cfg.Geometry.Resolve(view.Width, view.Height)
	if err != nil {
		return fmt.Errorf("%w: geometry: %v", ErrConfig, err)
	}

	fourcc := view.ResolveFourCC()
	_ = fourcc // only XR24 is supported; detile always assumes it (spec §4.1)
	layout := view.Layout()

	interval := cfg.Interval
	if interval == 0 {
		interval = 1
	}

	newEncoder := cfg.NewEncoder
	if newEncoder == nil {
		newEncoder = encoder.New
	}
	enc, err := newEncoder(encoder.Config{Width: geometry.W, Height: geometry.H, Preset: cfg.Preset})
	if err != nil {
		return fmt.Errorf("%w: encoder: %v", ErrConfig, err)
	}
	defer enc.Close()

	headers, err := enc.Headers()
	if err != nil {
		return fmt.Errorf("%w: encoder headers: %v", ErrConfig, err)
	}
	var sps, pps []byte
	for _, h := range headers {
		switch h.Type {
		case encoder.TypeSPS:
			sps = h.Payload
		case encoder.TypePPS:
			pps = h.Payload
		}
	}
	if sps == nil || pps == nil {
		return fmt.Errorf("%w: encoder did not produce both SPS and PPS", ErrConfig)
	}

	if view.RefreshHz <= 0 {
		return fmt.Errorf("%w: non-positive refresh rate %v", ErrConfig, view.RefreshHz)
	}
	frameDurationNs := uint64(math.Round(1e9 / view.RefreshHz))
	defaultDurationNs := frameDurationNs * uint64(interval)

	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open output: %v", ErrConfig, err)
	}
	defer f.Close()

	muxer, err := mkv.Open(f, mkv.Config{
		Width:             geometry.W,
		Height:            geometry.H,
		DefaultDurationNs: defaultDurationNs,
		SPS:               sps,
		PPS:               pps,
	})
	if err != nil {
		return fmt.Errorf("%w: muxer: %v", ErrConfig, err)
	}

	n := runtime.NumCPU()
	rgb := make([]byte, int(geometry.W)*int(geometry.H)*3)
	pool := workerpool.New(n, workerpool.Detile(workerpool.StripJob{
		In:       view.Bytes,
		Pitch:    view.PitchBytes,
		Layout:   layout,
		Geometry: geometry,
		Out:      rgb,
		N:        n,
	}))
	defer pool.Stop()

	newWaiter := cfg.NewDRMWaiter
	if newWaiter == nil {
		newWaiter = func(path string) (vblank.Waiter, error) { return vblank.OpenDRMWaiter(path) }
	}
	waiter, err := newWaiter(view.DevicePath)
	if err != nil {
		return fmt.Errorf("%w: vblank: %v", ErrConfig, err)
	}
	if closer, ok := waiter.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	clock := vblank.New(waiter, interval)

	stopCheck := cfg.StopCheck
	if stopCheck == nil {
		stopCheck = stdinReadable
	}

	var cues cue.Index
	var clusterTimestampTicks int64
	var numFramesWithinCluster int64
	first := true

	for {
		res, err := clock.Next()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		if res.Skipped {
			debuglog.Warnf("at least one frame skipped (delta=%d)", res.Delta)
		}
		if !first {
			numFramesWithinCluster += int64(res.Delta)
		}
		first = false

		pool.RunFrame()

		nals, err := enc.Encode(rgb, numFramesWithinCluster)
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrConfig, err)
		}

		for _, nal := range nals {
			if len(nal.Payload)+4 > maxSize28 {
				debuglog.Warnf("dropping oversize NAL (%d bytes)", len(nal.Payload))
				continue
			}

			tsInCluster := numFramesWithinCluster * int64(frameDurationNs)
			if tsInCluster > 0x7FFF || nal.Type == encoder.TypeIDR {
				if err := muxer.RolloverCluster(clusterTimestampTicks + tsInCluster); err != nil {
					return fmt.Errorf("%w: cluster rollover: %v", ErrConfig, err)
				}
				clusterTimestampTicks += tsInCluster
				numFramesWithinCluster = 0
				tsInCluster = 0
			}

			if nal.Type == encoder.TypeIDR {
				cues.Append(cue.Entry{
					TimestampTicks:         clusterTimestampTicks + tsInCluster,
					ClusterOffsetInSegment: muxer.ClusterOffsetInSegment(),
					BlockOffsetInCluster:   muxer.ClusterRunningSize(),
				})
			}

			if err := muxer.WriteBlock(nal.Payload, uint16(tsInCluster)); err != nil {
				return fmt.Errorf("%w: write block: %v", ErrConfig, err)
			}
		}

		stop, err := stopCheck()
		if err != nil {
			return fmt.Errorf("%w: stdin poll: %v", ErrConfig, err)
		}
		if stop {
			break
		}
	}

	if err := muxer.Finalize(&cues); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// stdinReadable performs a non-blocking poll of file descriptor 0 (spec
// §4.7 step 5); the stop signal is a single readable byte, never
// consumed — the caller breaks out of the loop without reading it.
func stdinReadable() (bool, error) {
	fds := []unix.PollFd{{Fd: 0, Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}
