// Package vblank implements component C3: a blocking wait for the next
// vertical blank at or beyond a target absolute sequence number, with
// skip detection.
package vblank

import "errors"

// ErrWait is returned when the underlying vblank wait ioctl/primitive
// fails; it is fatal to a recording session (spec §7).
var ErrWait = errors.New("vblank wait failed")

// Waiter is the raw primitive: a single blocking vblank wait, either
// relative to the current sequence (offset added to whatever the kernel
// currently reports) or absolute (wait until sequence >= target).
type Waiter interface {
	WaitRelative(offset uint32) (sequence uint32, err error)
	WaitAbsolute(target uint32) (sequence uint32, err error)
}

// Clock wraps a Waiter with the session bookkeeping spec §4.3
// describes: the first call is relative ("+1") and records the returned
// sequence as the session start s0; every later call is absolute,
// targeting s0 + k*interval.
type Clock struct {
	w        Waiter
	interval uint32 // recording interval in vblanks, 1..9

	started bool
	lastSeq uint32
	target  uint32
}

// New builds a Clock over the given Waiter with the recording interval
// (vblanks per captured frame, spec §6 --record-every-th).
func New(w Waiter, interval uint32) *Clock {
	if interval == 0 {
		interval = 1
	}
	return &Clock{w: w, interval: interval}
}

// Result carries the outcome of one Next call, including whether frames
// were skipped since the previous call (spec §4.3: the clock reports a
// warning but does not fail; the caller advances its frame counter by
// the actual delta, not by 1).
type Result struct {
	Sequence uint32
	Delta    uint32 // sequence - previous sequence (or 1 on first call)
	Skipped  bool
}

// Next advances the clock by one step: relative +1 on the first call,
// absolute s0+k*interval thereafter.
func (c *Clock) Next() (Result, error) {
	if !c.started {
		seq, err := c.w.WaitRelative(1)
		if err != nil {
			return Result{}, errors.Join(ErrWait, err)
		}
		c.started = true
		c.lastSeq = seq
		c.target = seq + c.interval
		return Result{Sequence: seq, Delta: 1, Skipped: false}, nil
	}

	seq, err := c.w.WaitAbsolute(c.target)
	if err != nil {
		return Result{}, errors.Join(ErrWait, err)
	}

	delta := seq - c.lastSeq
	skipped := delta > c.interval
	c.lastSeq = seq
	c.target += c.interval
	return Result{Sequence: seq, Delta: delta, Skipped: skipped}, nil
}
