// SPDX-License-Identifier: EPL-2.0

// Package device defines the audio output sink collaborator and a concrete
// implementation backed by github.com/ebitengine/oto/v3.
//
// The original engine's IAudioDevice is push-style: the device thread
// invokes a callback with a buffer to fill. oto is pull-style: a player
// reads bytes from an io.Reader whenever it wants more. OtoDevice bridges
// the two with an io.Pipe: a persistent oto.Player reads from the pipe,
// and a dedicated goroutine — the "device thread" — repeatedly calls the
// engine's Callback, converts the resulting
// float32 block to int16 bytes, and writes it into the pipe. This is the
// same io.Pipe()+ctx.NewPlayer(reader) shape as
// harperreed-resonate-go's pkg/audio/output/oto.go, adapted from that
// package's push-style Write(samples) entry point to a self-driving pull
// loop that calls back into the engine for more samples on demand.
package device
