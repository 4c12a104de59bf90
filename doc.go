// SPDX-License-Identifier: EPL-2.0

// Package medley is an automatic-DJ playback engine: given a queue of audio
// tracks it produces one continuous stereo stream in which successive
// tracks are crossfaded at musically sensible points, without gaps or
// operator intervention.
//
// The engine itself lives in the engine subpackage (engine.Engine is the
// facade most callers want — see cmd/medley for a minimal CLI built on it).
// The root package carries no code of its own; it exists to document how
// the subpackages below fit together.
//
// # Engine Quick Start
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	reg.Register("mp3", mp3.Decoder{})
//	reg.Register("flac", flac.Decoder{})
//
//	eng, err := engine.New(engine.Config{Queue: myQueue, Registry: reg, Device: myDevice})
//	eng.Play()
//
// # Supported Formats
//
//   - WAV (PCM 16-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 16-bit) via formats/aiff
//   - FLAC via formats/flac
//
// # Audio Processing Pipeline
//
// Lower-level building blocks live in the audio subpackage:
//
//	resampler := audio.NewResampler(source, 16000)
//	mono := audio.NewMonoMixer(resampler)
//	buf := make([]float32, 4096)
//	n, err := mono.ReadSamples(buf)
//
// See the individual subpackages — audio, scanner, buffering, resample,
// deck, mixer, transition, levels, engine — for the engine's internals,
// and audio.ResampleToMono16 for PCM out of a file without the deck/
// transition machinery.
package medley
