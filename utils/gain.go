// SPDX-License-Identifier: EPL-2.0

package utils

// ClampF64 restricts v to [lo, hi].
func ClampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ApplyGainRamp multiplies each interleaved frame in buf by a gain that moves
// linearly from startGain to endGain across the block. buf holds
// len(buf)/channels frames; every channel within a frame receives the same
// gain. Mirrors TrackBuffer::getNextAudioBlock's per-block applyGainRamp call
// in the original engine.
func ApplyGainRamp(buf []float32, channels int, startGain, endGain float32) {
	if channels <= 0 || len(buf) == 0 {
		return
	}

	frames := len(buf) / channels
	if frames <= 1 {
		for i := range buf {
			buf[i] *= endGain
		}
		return
	}

	step := (endGain - startGain) / float32(frames-1)
	gain := startGain
	for f := 0; f < frames; f++ {
		if f == frames-1 {
			gain = endGain
		}
		base := f * channels
		for c := 0; c < channels; c++ {
			buf[base+c] *= gain
		}
		gain += step
	}
}

// ApplyStopRamp fades buf from full volume to silence over the first
// rampFrames frames (clamped to the block size) and zeroes everything
// after — the "ramp 1.0 -> 0.0 over the first 256 samples, zero the
// remainder" step of the deck's audio-block production.
func ApplyStopRamp(buf []float32, channels, rampFrames int) {
	if channels <= 0 || len(buf) == 0 {
		return
	}

	frames := len(buf) / channels
	if rampFrames > frames {
		rampFrames = frames
	}
	if rampFrames < 1 {
		rampFrames = 1
	}

	ApplyGainRamp(buf[:rampFrames*channels], channels, 1.0, 0.0)
	for i := rampFrames * channels; i < len(buf); i++ {
		buf[i] = 0
	}
}

// ApplyStartRamp fades buf from silence to full volume over the first
// rampFrames frames (clamped to the block size) and leaves everything after
// untouched — the inverse of ApplyStopRamp, used by the mixer's unpause
// ramp: ramps 0.0 -> 1.0 across min(256, N) samples and clears stalled.
func ApplyStartRamp(buf []float32, channels, rampFrames int) {
	if channels <= 0 || len(buf) == 0 {
		return
	}

	frames := len(buf) / channels
	if rampFrames > frames {
		rampFrames = frames
	}
	if rampFrames < 1 {
		rampFrames = 1
	}

	ApplyGainRamp(buf[:rampFrames*channels], channels, 0.0, 1.0)
}
