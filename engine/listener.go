// SPDX-License-Identifier: EPL-2.0

package engine

import "github.com/ik5/medley/deck"

// Listener receives the engine's public events. Implementations must
// return promptly: Engine dispatches
// from a copy-on-iterate snapshot taken under a brief lock, but the
// invocation itself happens outside any lock, on whichever thread raised
// the event (audio thread for position/started/finished, loader thread
// for loaded/unloaded, control thread for
// preCueNext/audioDeviceChanged).
type Listener interface {
	OnStarted(d *deck.Deck)
	OnFinished(d *deck.Deck)
	OnLoaded(d *deck.Deck)
	OnUnloaded(d *deck.Deck)
	OnPosition(d *deck.Deck, seconds float64)
	OnPreCueNext()
	OnAudioDeviceChanged()
}

// BaseListener implements Listener with no-ops; embed it to receive only
// the events you care about.
type BaseListener struct{}

func (BaseListener) OnStarted(*deck.Deck)            {}
func (BaseListener) OnFinished(*deck.Deck)           {}
func (BaseListener) OnLoaded(*deck.Deck)             {}
func (BaseListener) OnUnloaded(*deck.Deck)           {}
func (BaseListener) OnPosition(*deck.Deck, float64)  {}
func (BaseListener) OnPreCueNext()                   {}
func (BaseListener) OnAudioDeviceChanged()           {}
