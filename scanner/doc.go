// SPDX-License-Identifier: EPL-2.0

// Package scanner measures the first-audible, last-audible, and
// end-of-trailing-silence sample offsets of a track.
//
// A Scanner opens its own decoder instance for a file — independent of
// whatever deck is playing it — downmixes it to mono with audio.MonoMixer,
// and walks the decoded envelope once to locate:
//
//   - first-audible: where the intro actually starts making sound
//   - last-audible: where the outro's sustained quiet begins
//   - end-of-playout: where the file's trailing digital silence begins
//
// Because audio.Source exposes no random-access Length/Seek, the analysis
// pass buffers a compressed magnitude envelope (one RMS value per
// ~1ms window) rather than seeking back and forth the way the original
// engine's searchForLevel does against a random-access reader. A ten-minute
// stereo track compresses to a few hundred thousand float32 values, which is
// cheap next to a single decode pass.
//
// Scan is a synchronous, allocating call meant to run on a background
// worker (internal/worker.Pool); it is never invoked from the audio thread.
package scanner
