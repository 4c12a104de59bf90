package loader

import (
	"github.com/ik5/medley/internal/worker"
)

// ScanScheduler defers a deck's track scan onto a shared Pool so the
// scan's full decode pass never runs on the audio thread. It is grounded on
// TrackBuffer::TrackScanningScheduler, whose useTimeSlice() ran scanTrackInternal
// once per "doScan" request and otherwise did nothing; repeated Scan() calls
// before the pending one executes collapse into a single run, the same way
// setting doScan=true twice in a row only scans once.
type ScanScheduler struct {
	pool *worker.Pool
	slot worker.SingleSlot[string] // pending track path
	run  func(path string)
}

// NewScanScheduler returns a ScanScheduler that submits to pool and invokes
// onScan for each path that survives to execution.
func NewScanScheduler(pool *worker.Pool, onScan func(path string)) *ScanScheduler {
	return &ScanScheduler{pool: pool, run: onScan}
}

// Scan requests a scan of path, replacing any scan still pending for a
// different (or the same) path.
func (s *ScanScheduler) Scan(path string) {
	s.slot.Set(path)
	s.pool.Submit(func() {
		p, ok := s.slot.Take()
		if !ok {
			return
		}
		s.run(p)
	})
}

// Cancel discards a pending scan request that hasn't started yet.
func (s *ScanScheduler) Cancel() {
	s.slot.Clear()
}
