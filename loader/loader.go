package loader

import (
	"github.com/ik5/medley/internal/worker"
)

// Request describes the track a Deck wants loaded.
type Request struct {
	Path string
	Play bool
}

// Loader accepts at most one pending Request per deck. A second call to
// Load before the pool has picked up the first replaces it outright — the
// deck never loads a file it has already moved on from.
//
// Loader owns no goroutine of its own; it submits a closure to a shared
// Pool (the "loading thread") each time Load is called, and that closure
// is a no-op if its request has since been superseded or already taken.
type Loader struct {
	pool *worker.Pool
	slot worker.SingleSlot[Request]
	run  func(Request)
}

// New returns a Loader that submits accepted requests to pool and invokes
// onLoad with each one that survives to execution. onLoad runs on a pool
// worker goroutine, never on the audio thread.
func New(pool *worker.Pool, onLoad func(Request)) *Loader {
	return &Loader{pool: pool, run: onLoad}
}

// Load requests that req be loaded, discarding any request still pending.
func (l *Loader) Load(req Request) {
	l.slot.Set(req)
	l.pool.Submit(func() {
		r, ok := l.slot.Take()
		if !ok {
			return
		}
		l.run(r)
	})
}

// Cancel discards any pending request without running it. A load already
// picked up by a worker is unaffected.
func (l *Loader) Cancel() {
	l.slot.Clear()
}
