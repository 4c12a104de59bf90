// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 safe for concurrent read/write without a mutex.
// Decks use it for the scalars the audio thread reads and the control,
// loader, and scanner threads write — position, volume, transition
// timestamps — reserving the callback lock for pointer swaps and flag
// bundles that must move together.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 returns an AtomicFloat64 initialized to v.
func NewAtomicFloat64(v float64) *AtomicFloat64 {
	a := &AtomicFloat64{}
	a.Store(v)
	return a
}

func (a *AtomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *AtomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}
