// Package workerpool implements component C2: N preallocated detile
// workers, each owning a horizontal strip of the output image, driven by
// a per-frame start/finish rendezvous.
//
// Synchronization mirrors spec §4.2's counting semaphores with buffered
// Go channels: mayStart[i] is a capacity-1 channel signaled once per
// frame by the driver, and hasFinished is a capacity-N channel each
// worker posts to once its strip is done. Channels give the same
// counting-semaphore semantics the spec requires (a worker finishing
// twice before the driver drains would simply queue two tokens) without
// reaching for a non-stdlib semaphore package for a concern goroutines
// and channels already cover idiomatically.
package workerpool

import (
	"screenrec.dev/screenrec/internal/detile"
	"screenrec.dev/screenrec/internal/framebuffer"
)

// StripFunc detiles one worker's strip. It is called once per frame,
// synchronized by the pool's rendezvous.
type StripFunc func(workerIndex int)

// Pool owns N worker goroutines and the per-frame rendezvous channels.
type Pool struct {
	n           int
	mayStart    []chan struct{}
	hasFinished chan struct{}
	stop        chan struct{}
	work        StripFunc
}

// New starts N worker goroutines. work is invoked once per frame per
// worker, after the driver releases that worker's start ticket, and must
// only touch the worker's own output strip.
func New(n int, work StripFunc) *Pool {
	p := &Pool{
		n:           n,
		mayStart:    make([]chan struct{}, n),
		hasFinished: make(chan struct{}, n),
		stop:        make(chan struct{}),
		work:        work,
	}
	for i := range p.mayStart {
		p.mayStart[i] = make(chan struct{}, 1)
	}
	for i := 0; i < n; i++ {
		go p.runWorker(i)
	}
	return p
}

func (p *Pool) runWorker(i int) {
	for {
		select {
		case <-p.stop:
			return
		case <-p.mayStart[i]:
			select {
			case <-p.stop:
				return
			default:
			}
			p.work(i)
			p.hasFinished <- struct{}{}
		}
	}
}

// RunFrame releases all N start tickets and blocks until N finish
// tickets have been collected, i.e. until every worker's strip write
// happens-before the return of RunFrame (spec §5's ordering guarantee).
func (p *Pool) RunFrame() {
	for i := 0; i < p.n; i++ {
		p.mayStart[i] <- struct{}{}
	}
	for i := 0; i < p.n; i++ {
		<-p.hasFinished
	}
}

// Stop sets the cooperative stop flag. Idle workers exit as soon as it is
// set; a worker in the middle of a strip finishes that strip first and is
// never cancelled mid-strip (spec §4.2). A start ticket received after
// Stop is not acted on. Stop does not itself release a start ticket; the
// caller's RunFrame loop simply stops being called after this.
func (p *Pool) Stop() {
	close(p.stop)
}

// N returns the number of workers, computed by the caller as the count
// of online logical CPUs at recording start (spec §4.2).
func (p *Pool) N() int { return p.n }

// StripBounds computes worker i's disjoint row range [y0,y1) of an image
// of height h split across n workers: strip_h = ceil(h/n).
func StripBounds(i, n int, h uint32) (y0, y1 uint32) {
	stripH := (h + uint32(n) - 1) / uint32(n)
	y0 = uint32(i) * stripH
	y1 = y0 + stripH
	if y1 > h {
		y1 = h
	}
	if y0 > h {
		y0 = h
	}
	return y0, y1
}

// StripJob is a convenience bundling a detile.Strip's static fields so
// callers can build a StripFunc closure that only needs the mutable
// worker index.
type StripJob struct {
	In       []byte
	Pitch    uint32
	Layout   framebuffer.Layout
	Geometry framebuffer.Geometry
	Out      []byte
	N        int
}

// Detile returns a StripFunc that runs internal/detile over worker i's
// strip of job.
func Detile(job StripJob) StripFunc {
	return func(i int) {
		y0, y1 := StripBounds(i, job.N, job.Geometry.H)
		detile.Run(detile.Strip{
			In:       job.In,
			Pitch:    job.Pitch,
			Layout:   job.Layout,
			Geometry: job.Geometry,
			Out:      job.Out,
			Y0Y1:     [2]uint32{y0, y1},
		})
	}
}
