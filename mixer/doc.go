// SPDX-License-Identifier: EPL-2.0

// Package mixer sums the two decks' audio blocks, applies the pause
// fade, invokes the post-processor, and feeds the level tracker.
//
// It is grounded on Medley's MixerAudioSource/mainOut chain (Medley.cpp's
// constructor: "mixer.addInputSource(deck1, false); ...;
// mainOut.setSource(&mixer)"); the pause ramp and "stalled" bookkeeping are
// built directly from observed crossfade behavior since Medley.cpp's own
// pause handling sits outside the retrieved excerpt of the original engine.
package mixer
