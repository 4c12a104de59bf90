// SPDX-License-Identifier: EPL-2.0

package deck

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/buffering"
	"github.com/ik5/medley/resample"
	"github.com/ik5/medley/scanner"
)

// unknownOffset marks an offset that scanning hasn't determined yet; the
// deck treats it as "keep playing" rather than a real end-of-playout.
const unknownOffset = int64(math.MaxInt64)

// chain is a deck's loaded substructure: the per-track decode pipeline plus
// the offsets derived from it. Swapping it is the single "move" Design
// Notes call for — the deck holds at most one *chain at a time, guarded by
// its callback lock.
type chain struct {
	path string

	reader    *buffering.Reader
	resampler *resample.Adapter

	sourceSampleRate int
	channels         int

	firstAudible int64
	lastAudible  int64
	endOfPlayout int64
	totalSamples int64
	scanned      bool

	leadingDuration  float64
	trailingDuration float64
	transitionPreCue float64
	transitionCue    float64
	transitionStart  float64
	transitionEnd    float64
}

// openChain opens path through the registry and wraps it for playback.
// firstAudible, when non-zero, is skipped on the raw decoded stream before
// buffering starts — the forward-only equivalent of the source's
// bufferingSource->setNextReadPosition(firstAudibleSoundPosition).
func openChain(cfg Config, path string, firstAudible int64) (*chain, error) {
	dec, ok := decoderForPath(cfg.Registry, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if firstAudible > 0 {
		if err := skipFrames(src, firstAudible); err != nil {
			src.Close()
			return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
		}
	}

	sourceSampleRate := src.SampleRate()
	channels := src.Channels()

	reader := buffering.NewReader(src, cfg.ReadAheadPool, 2.0)
	resampler := resample.New(reader, cfg.DeviceSampleRate)

	c := &chain{
		path:             path,
		reader:           reader,
		resampler:        resampler,
		sourceSampleRate: sourceSampleRate,
		channels:         channels,
		firstAudible:     firstAudible,
		lastAudible:      unknownOffset,
		endOfPlayout:     unknownOffset,
		totalSamples:     unknownOffset,
	}
	c.transitionPreCue = math.Inf(1)
	c.transitionCue = math.Inf(1)
	c.transitionStart = math.Inf(1)
	c.transitionEnd = math.Inf(1)
	return c, nil
}

// applyScan installs real offsets once the background scan completes,
// replacing the fallback "play to natural end" sentinels and computing the
// derived transition timestamps in seconds.
func (c *chain) applyScan(cfg Config, offsets scanner.Offsets) {
	c.totalSamples = offsets.TotalSamples
	c.lastAudible = offsets.LastAudible
	c.endOfPlayout = offsets.EndOfPlayout
	c.scanned = true

	rate := float64(offsets.SampleRate)
	if rate <= 0 {
		rate = float64(c.sourceSampleRate)
	}

	firstAudibleSec := float64(c.firstAudible) / rate
	energyPointSec := float64(offsets.EnergyPoint) / rate
	lastAudibleSec := float64(offsets.LastAudible) / rate
	endOfPlayoutSec := float64(offsets.EndOfPlayout) / rate

	c.leadingDuration = math.Max(0, energyPointSec-firstAudibleSec)
	c.trailingDuration = math.Max(0, endOfPlayoutSec-lastAudibleSec)

	trailingFloor := math.Max(c.trailingDuration, cfg.MinTrailingDuration)
	c.transitionStart = lastAudibleSec
	c.transitionCue = math.Max(0, lastAudibleSec-trailingFloor)
	c.transitionPreCue = math.Max(0, c.transitionCue-2.0)
	c.transitionEnd = math.Min(c.transitionStart+cfg.MaxTransitionTime, endOfPlayoutSec)
}

func (c *chain) close() error {
	return c.reader.Close()
}

func decoderForPath(reg *audio.Registry, path string) (audio.Decoder, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return reg.Get(ext)
}

// skipFrames discards the first `frames` frames of src by decoding and
// throwing them away. audio.Source has no random-access Seek, so this is
// the only way to start playback at first-audible.
func skipFrames(src audio.Source, frames int64) error {
	channels := src.Channels()
	if channels < 1 {
		channels = 1
	}
	chunk := src.BufSize()
	if chunk < channels {
		chunk = channels * 4096
	}
	buf := make([]float32, chunk)

	remaining := frames * int64(channels)
	for remaining > 0 {
		want := buf
		if int64(len(want)) > remaining {
			want = buf[:remaining]
		}
		n, err := src.ReadSamples(want)
		remaining -= int64(n)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
