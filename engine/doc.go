// SPDX-License-Identifier: EPL-2.0

// Package engine is the public facade: it owns both decks, the mixer, the
// transition controller, the device, and the background worker pools,
// and exposes the engine's public surface (play/stop/seek/fadeOut,
// listener registration) as the one type embedders construct.
//
// It is grounded on Medley.cpp's top-level orchestration — the same
// source controller.go is grounded on — but collapsed into a single Go
// type rather than the original's Medley-plus-listener-interfaces split,
// per the Design Notes' resolution of the listener-registration coupling:
// Engine implements deck.Observer directly and forwards to its own
// listener set and to the transition controller.
package engine
