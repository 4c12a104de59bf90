// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/mewkiz/flac/frame"
)

// mockFlacStream feeds a fixed sequence of frames, simulating *flac.Stream.
type mockFlacStream struct {
	frames []*frame.Frame
	idx    int
}

func (m *mockFlacStream) ParseNext() (*frame.Frame, error) {
	if m.idx >= len(m.frames) {
		return nil, io.EOF
	}
	f := m.frames[m.idx]
	m.idx++
	return f, nil
}

func makeFrame(channels int, samples [][]int32) *frame.Frame {
	f := &frame.Frame{}
	f.BlockSize = uint16(len(samples[0]))
	f.Subframes = make([]*frame.Subframe, channels)
	for c := 0; c < channels; c++ {
		f.Subframes[c] = &frame.Subframe{Samples: samples[c]}
	}
	return f
}

func TestSource_ReadSamples_SingleFrame(t *testing.T) {
	t.Parallel()

	f := makeFrame(2, [][]int32{
		{16384, -16384},
		{8192, -8192},
	})

	src := &source{
		dec:           &mockFlacStream{frames: []*frame.Frame{f}},
		sampleRate:    44100,
		channels:      2,
		bitsPerSample: 16,
	}

	buf := make([]float32, 4)
	n, err := src.ReadSamples(buf)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 4 {
		t.Fatalf("ReadSamples() n = %d, want 4", n)
	}

	want := []float32{0.5, 0.25, -0.5, -0.25}
	for i := range want {
		if math.Abs(float64(buf[i]-want[i])) > 1e-3 {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestSource_ReadSamples_CarriesOverPartialFrame(t *testing.T) {
	t.Parallel()

	f := makeFrame(1, [][]int32{{100, 200, 300, 400}})

	src := &source{
		dec:           &mockFlacStream{frames: []*frame.Frame{f}},
		sampleRate:    8000,
		channels:      1,
		bitsPerSample: 16,
	}

	buf := make([]float32, 2)

	n, err := src.ReadSamples(buf)
	if err != nil {
		t.Fatalf("first ReadSamples() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("first ReadSamples() n = %d, want 2", n)
	}

	n, err = src.ReadSamples(buf)
	if err != nil {
		t.Fatalf("second ReadSamples() error = %v, want nil", err)
	}
	if n != 2 {
		t.Fatalf("second ReadSamples() n = %d, want 2 (carried-over samples)", n)
	}

	n, err = src.ReadSamples(buf)
	if err != io.EOF || n != 0 {
		t.Fatalf("third ReadSamples() = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestSource_ReadSamples_EOFOnExhaustedStream(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:           &mockFlacStream{frames: nil},
		sampleRate:    8000,
		channels:      1,
		bitsPerSample: 16,
	}

	buf := make([]float32, 4)
	n, err := src.ReadSamples(buf)
	if err != io.EOF {
		t.Fatalf("ReadSamples() error = %v, want io.EOF", err)
	}
	if n != 0 {
		t.Fatalf("ReadSamples() n = %d, want 0", n)
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := &source{sampleRate: 48000, channels: 2, pending: make([]float32, 0, 512)}

	if src.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", src.SampleRate())
	}
	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}
	if src.BufSize() != 512 {
		t.Errorf("BufSize() = %d, want 512", src.BufSize())
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte("not a flac stream"))
	_, err := Decoder{}.Decode(r)
	if err == nil {
		t.Fatal("Decode() error = nil, want error for invalid FLAC data")
	}
}
