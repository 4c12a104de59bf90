// SPDX-License-Identifier: EPL-2.0

package device

// Callback is invoked by a Device's playback thread with an interleaved
// float32 buffer to fill and the number of frames it holds (len(buf) /
// channels). Implementations must return promptly — this runs on the
// device thread.
type Callback func(buf []float32, numFrames int)

// Device is the abstract audio output sink: open a format, start delivering callbacks,
// report latency, and close.
type Device interface {
	// Open configures the device for the given format. bufferSize is in
	// frames.
	Open(sampleRate, channels, bufferSize int) error
	// Start begins calling cb repeatedly from the device thread until
	// Close. Open must have succeeded first.
	Start(cb Callback) error
	// OutputLatencySamples reports the device's output latency, used by
	// levels.Tracker to delay-compensate metering.
	OutputLatencySamples() int
	// Close stops playback and releases the device.
	Close() error
}
