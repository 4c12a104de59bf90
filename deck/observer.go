// SPDX-License-Identifier: EPL-2.0

package deck

// Observer receives a deck's lifecycle events. The engine is the only
// production implementation; Design Notes resolve the source's
// listener-registration coupling between TrackBuffer and Medley into a
// direct method call on an owning parent instead, which sidesteps listener
// deregistration lifetime issues entirely.
type Observer interface {
	OnLoaded(d *Deck)
	OnStarted(d *Deck)
	OnFinished(d *Deck)
	OnUnloaded(d *Deck)
	OnPosition(d *Deck, seconds float64)
	OnTrackScanning(d *Deck)
	OnTrackScanned(d *Deck)
}

// NopObserver implements Observer with no-ops, useful for tests that
// exercise a Deck in isolation.
type NopObserver struct{}

func (NopObserver) OnLoaded(*Deck)            {}
func (NopObserver) OnStarted(*Deck)           {}
func (NopObserver) OnFinished(*Deck)          {}
func (NopObserver) OnUnloaded(*Deck)          {}
func (NopObserver) OnPosition(*Deck, float64) {}
func (NopObserver) OnTrackScanning(*Deck)     {}
func (NopObserver) OnTrackScanned(*Deck)      {}
