// SPDX-License-Identifier: EPL-2.0

// Package buffering prefetches decoded samples on a background goroutine so
// the audio callback never blocks on file I/O or CPU-heavy decode work.
//
// It is grounded on JUCE's BufferingAudioSource as driven by TrackBuffer
// (TrackBuffer.cpp: "new BufferingAudioSource(newSource, readAheadThread,
// false, sourceSampleRate * 2, 2)") — a ~2 second circular lookahead buffer
// refilled on a dedicated thread, with getNextAudioBlock on the audio
// thread always returning immediately, zero-filling any shortfall.
//
// One original capability is deliberately not carried over: JUCE's
// AudioFormatReader supports random-access seeking, so
// BufferingAudioSource::setNextReadPosition can jump anywhere in the file.
// audio.Source here is decode-forward-only (see scanner's envelope scan for
// the same constraint), so Reader offers Flush instead of Seek: it drops
// whatever is buffered and resumes prefetching from wherever the underlying
// decode currently stands. Deck only ever calls it at load time, before
// playback has consumed any frames, where that's equivalent to a seek to
// the start.
package buffering
