// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/ik5/medley/utils"
)

// ErrNotOpened is returned by Start when Open has not yet succeeded.
var ErrNotOpened = errors.New("device: Open must succeed before Start")

// OtoDevice is the concrete Device implementation backed by
// github.com/ebitengine/oto/v3. oto only plays 16-bit signed PCM pulled
// through an io.Reader, so OtoDevice feeds it via an io.Pipe: a persistent
// player reads from the pipe, and a dedicated goroutine — the "device
// thread" — repeatedly invokes the engine's Callback to fill a float32
// buffer, converts it to int16 bytes, and writes it into the pipe. This is
// the same io.Pipe()+ctx.NewPlayer(reader) shape as
// harperreed-resonate-go's pkg/audio/output/oto.go, adapted from that
// package's push-style Write(samples) to the pull-style Callback this
// engine's decks expect to drive.
type OtoDevice struct {
	logger zerolog.Logger

	ctx    *oto.Context
	player *oto.Player

	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	sampleRate, channels, bufferSize int

	cb   Callback
	stop chan struct{}
	done chan struct{}
}

// NewOto constructs an unopened OtoDevice.
func NewOto(logger zerolog.Logger) *OtoDevice {
	return &OtoDevice{logger: logger}
}

// Open creates the oto context for the requested format. oto supports one
// context per process; Open must be called exactly once per OtoDevice.
func (o *OtoDevice) Open(sampleRate, channels, bufferSize int) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("device: failed to create oto context: %w", err)
	}
	<-ready

	o.ctx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.bufferSize = bufferSize
	return nil
}

// Start begins pulling blocks from cb and feeding them to oto until Close.
func (o *OtoDevice) Start(cb Callback) error {
	if o.ctx == nil {
		return ErrNotOpened
	}

	o.cb = cb
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.ctx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	go o.run()
	return nil
}

func (o *OtoDevice) run() {
	defer close(o.done)

	floatBuf := make([]float32, o.bufferSize*o.channels)
	byteBuf := make([]byte, len(floatBuf)*2)

	for {
		select {
		case <-o.stop:
			return
		default:
		}

		o.cb(floatBuf, o.bufferSize)
		for i, v := range floatBuf {
			s := utils.Float32ToInt16(v)
			binary.LittleEndian.PutUint16(byteBuf[i*2:], uint16(s))
		}

		if _, err := o.pipeWriter.Write(byteBuf); err != nil {
			o.logger.Debug().Err(err).Msg("device: pipe closed, stopping device thread")
			return
		}
	}
}

// OutputLatencySamples approximates the device's output latency as one
// buffer's worth of frames; oto exposes no finer-grained query.
func (o *OtoDevice) OutputLatencySamples() int {
	return o.bufferSize
}

// Close stops the device thread and releases the player and pipe.
func (o *OtoDevice) Close() error {
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
	}
	if o.done != nil {
		<-o.done
		o.done = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
	}
	return nil
}
