// SPDX-License-Identifier: EPL-2.0

// Package flac provides FLAC (Free Lossless Audio Codec) decoding.
//
// This package uses github.com/mewkiz/flac to parse FLAC streams frame by
// frame and exposes them through the audio.Source interface used throughout
// the engine.
//
// # Decoding FLAC Files
//
//	decoder := flac.Decoder{}
//	file, _ := os.Open("track.flac")
//	source, err := decoder.Decode(file)
//	if err != nil {
//	    // not a FLAC stream
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// # Output Format
//
// Samples are emitted as interleaved float32 in [-1.0, 1.0], normalized
// against the stream's reported bits-per-sample (commonly 16 or 24). The
// channel count and sample rate come from the FLAC STREAMINFO block and are
// fixed for the lifetime of the decoded Source.
//
// Frames decoded from the underlying stream are rarely the same size as the
// caller's buffer; the source keeps a small interleaved carry-over buffer
// between ReadSamples calls so partial frames are never dropped.
package flac
