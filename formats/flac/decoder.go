// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	gomewkizflac "github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/medley/audio"
)

// flacStream is the subset of *flac.Stream the decoder relies on, kept as an
// interface so frame-decoding logic can be exercised without a real FLAC
// byte stream.
type flacStream interface {
	ParseNext() (*frame.Frame, error)
}

type source struct {
	dec           flacStream
	sampleRate    int
	channels      int
	bitsPerSample int
	pending       []float32 // interleaved carry-over from the last decoded frame
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.pending) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			fr, err := s.dec.ParseNext()
			if err != nil {
				if err == io.EOF {
					if n == 0 {
						return 0, io.EOF
					}
					return n, io.EOF
				}
				return n, fmt.Errorf("%w", err)
			}
			s.pending = interleaveFrame(fr, s.channels, s.bitsPerSample)
		}

		take := len(dst) - n
		if take > len(s.pending) {
			take = len(s.pending)
		}
		copy(dst[n:n+take], s.pending[:take])
		s.pending = s.pending[take:]
		n += take
	}

	return n, nil
}

// interleaveFrame normalizes a decoded frame's per-subframe integer samples
// into interleaved float32 in [-1.0, 1.0].
func interleaveFrame(fr *frame.Frame, channels, bitsPerSample int) []float32 {
	blockSize := int(fr.BlockSize)
	out := make([]float32, blockSize*channels)

	maxVal := float32(int64(1) << uint(bitsPerSample-1))
	if maxVal <= 0 {
		maxVal = 32768.0
	}

	for i := 0; i < blockSize; i++ {
		for c := 0; c < channels; c++ {
			if c >= len(fr.Subframes) || i >= len(fr.Subframes[c].Samples) {
				continue
			}
			out[i*channels+c] = float32(fr.Subframes[c].Samples[i]) / maxVal
		}
	}

	return out
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	stream, err := gomewkizflac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	bitsPerSample := int(stream.Info.BitsPerSample)
	if bitsPerSample <= 0 {
		bitsPerSample = 16
	}

	return &source{
		dec:           stream,
		sampleRate:    int(stream.Info.SampleRate),
		channels:      int(stream.Info.NChannels),
		bitsPerSample: bitsPerSample,
	}, nil
}
