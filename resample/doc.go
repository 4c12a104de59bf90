// SPDX-License-Identifier: EPL-2.0

// Package resample adapts audio.Resampler to the deck pipeline's device-rate
// contract: one Adapter always produces samples at a single fixed device
// rate and exposes Flush for the moments a discontinuity is introduced
// upstream (a buffering.Reader.Flush at load time).
//
// It is grounded on TrackBuffer::setSource, which paired a
// BufferingAudioSource with a ResamplingAudioSource and, on
// TrackBuffer::setPosition, called resamplerSource->flushBuffers() to
// discard the interpolation history that would otherwise smear the old and
// new playback positions together. audio.Resampler carries no such reset
// method, so Flush here rebuilds it in place against the same source.
package resample
