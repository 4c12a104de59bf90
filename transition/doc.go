// SPDX-License-Identifier: EPL-2.0

// Package transition implements the dual-deck crossfade state machine:
// it watches the main deck's position and decides when to fetch
// the next track, when to start the incoming deck, and how to ramp gain on
// both decks as a transition proceeds.
//
// It is grounded directly on Medley::deckPosition, Medley::deckUnloaded,
// Medley::loadNextTrack and Medley::play (Medley.cpp in the original
// engine) — the only part of the source this spec distills that survived
// into SPEC_FULL.md essentially verbatim, because the original already
// expresses the rule as a short, precise position-callback handler. Engine
// forwards deck.Observer events to Controller instead of Controller
// registering itself as a deck listener, per the Design Notes' resolution
// of the source's listener-registration coupling.
package transition
