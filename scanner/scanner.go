// SPDX-License-Identifier: EPL-2.0

package scanner

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ik5/medley/audio"
)

const (
	firstSoundThresholdDB   = -60.0
	endingSilenceThresholdDB = -45.0
	playoutSilenceThresholdDB = -60.0

	firstSoundDuration       = 1e-3 // seconds
	lastSoundDuration        = 1.25 // seconds
	lastSoundScanningWindow  = 30.0 // seconds, how far back from the end to start looking
	endOfPlayoutDuration     = 4e-3 // seconds

	envelopeBucketDuration = firstSoundDuration // one bucket == the first-audible sustain window
	envelopeReadBufSamples = 4096
)

// Offsets are the sample positions computed by a scan. SampleRate is the
// decoder's native sample rate, not the device rate; Deck converts to
// seconds using it.
type Offsets struct {
	FirstAudible int64
	LastAudible  int64
	EndOfPlayout int64
	TotalSamples int64
	SampleRate   int

	// EnergyPoint is the first sample index, at or after FirstAudible, where
	// the envelope sustains its 95th-percentile level for roughly 1s. Deck
	// uses it to derive leading_duration.
	EnergyPoint int64
}

// Scanner locates the audible boundaries of tracks on demand.
type Scanner struct {
	registry *audio.Registry
	logger   zerolog.Logger
}

// New creates a Scanner that resolves decoders from registry. A zero Logger
// (zerolog.Nop()) is fine; Scan only emits Debug-level lines.
func New(registry *audio.Registry, logger zerolog.Logger) *Scanner {
	return &Scanner{registry: registry, logger: logger}
}

// Scan opens its own decode of path and computes Offsets. On any failure to
// open or decode the file it returns ErrScanFailed; callers should fall back
// to playing the track without a scanned transition cue.
func (s *Scanner) Scan(path string) (Offsets, error) {
	dec, ok := decoderFor(s.registry, path)
	if !ok {
		return Offsets{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return Offsets{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return Offsets{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	defer src.Close()

	sampleRate := src.SampleRate()
	mono := audio.NewMonoMixer(src)

	env, total, err := buildEnvelope(mono)
	if err != nil {
		return Offsets{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}

	bucketSamples := bucketSize(sampleRate)
	offsets := analyzeEnvelope(env, total, sampleRate, bucketSamples)

	s.logger.Debug().
		Str("path", path).
		Int64("first_audible", offsets.FirstAudible).
		Int64("last_audible", offsets.LastAudible).
		Int64("end_of_playout", offsets.EndOfPlayout).
		Int64("total_samples", offsets.TotalSamples).
		Msg("scan complete")

	return offsets, nil
}

func decoderFor(reg *audio.Registry, path string) (audio.Decoder, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return reg.Get(ext)
}

func bucketSize(sampleRate int) int64 {
	n := int64(math.Round(float64(sampleRate) * envelopeBucketDuration))
	if n < 1 {
		n = 1
	}
	return n
}

// buildEnvelope decodes mono fully, returning an RMS-per-bucket envelope and
// the exact total sample count.
func buildEnvelope(mono audio.Source) ([]float32, int64, error) {
	bucket := bucketSize(mono.SampleRate())
	buf := make([]float32, envelopeReadBufSamples)

	var env []float32
	var total int64
	var sumSq float32
	var inBucket int64

	flush := func() {
		if inBucket == 0 {
			return
		}
		rms := float32(math.Sqrt(float64(sumSq) / float64(inBucket)))
		env = append(env, rms)
		sumSq = 0
		inBucket = 0
	}

	for {
		n, err := mono.ReadSamples(buf)
		for i := 0; i < n; i++ {
			v := buf[i]
			sumSq += v * v
			inBucket++
			total++
			if inBucket >= bucket {
				flush()
			}
		}

		if err == io.EOF {
			flush()
			return env, total, nil
		}
		if err != nil {
			return nil, 0, err
		}
	}
}

// analyzeEnvelope applies a threshold search over bucketed RMS values
// and converts bucket indices back to sample offsets.
func analyzeEnvelope(env []float32, total int64, sampleRate int, bucket int64) Offsets {
	offsets := Offsets{SampleRate: sampleRate, TotalSamples: total}

	if len(env) == 0 {
		return offsets
	}

	firstThreshold := dbToGain(firstSoundThresholdDB)
	endingThreshold := dbToGain(endingSilenceThresholdDB)
	playoutThreshold := dbToGain(playoutSilenceThresholdDB)

	firstSustainBuckets := int64(1) // the bucket duration already equals the 1ms sustain window
	lastSustainBuckets := samplesToBuckets(lastSoundDuration, sampleRate, bucket)
	endSustainBuckets := samplesToBuckets(endOfPlayoutDuration, sampleRate, bucket)
	scanBackBuckets := samplesToBuckets(lastSoundScanningWindow, sampleRate, bucket)

	midBucket := int64(len(env)) / 2

	firstBucket := findRun(env, 0, midBucket, firstSustainBuckets, func(v float32) bool { return v > firstThreshold })
	if firstBucket < 0 {
		firstBucket = 0
	}

	lastStart := maxInt64(firstBucket, midBucket)
	if backStart := int64(len(env)) - scanBackBuckets; backStart > lastStart {
		lastStart = backStart
	}
	if lastStart < 0 {
		lastStart = 0
	}

	lastBucket := findRun(env, lastStart, int64(len(env)), lastSustainBuckets, func(v float32) bool { return v < endingThreshold })

	var endBucket int64
	if lastBucket < 0 {
		// No sustained ending silence found; keep playing to the natural end.
		lastBucket = int64(len(env))
		endBucket = int64(len(env))
	} else {
		endBucket = findRun(env, lastBucket, int64(len(env)), endSustainBuckets, func(v float32) bool { return v < playoutThreshold })
		if endBucket < 0 {
			endBucket = int64(len(env))
		}
	}

	offsets.FirstAudible = clampSample(firstBucket*bucket, total)
	offsets.LastAudible = clampSample(lastBucket*bucket, total)
	offsets.EndOfPlayout = clampSample(endBucket*bucket, total)

	if offsets.LastAudible < offsets.FirstAudible {
		offsets.LastAudible = offsets.FirstAudible
	}
	if offsets.EndOfPlayout < offsets.LastAudible {
		offsets.EndOfPlayout = offsets.LastAudible
	}

	energyWindow := samplesToBuckets(1.0, sampleRate, bucket)
	energyBucket := findEnergyPoint(env, firstBucket, lastBucket, energyWindow)
	offsets.EnergyPoint = clampSample(energyBucket*bucket, total)
	if offsets.EnergyPoint < offsets.FirstAudible {
		offsets.EnergyPoint = offsets.FirstAudible
	}

	return offsets
}

// findEnergyPoint returns the first bucket in [from, to) at which a window
// of `window` buckets averages at or above the 95th-percentile level of
// env[from:to], falling back to from if the range is degenerate.
func findEnergyPoint(env []float32, from, to, window int64) int64 {
	if window < 1 {
		window = 1
	}
	if from < 0 {
		from = 0
	}
	if to > int64(len(env)) {
		to = int64(len(env))
	}
	if to-from < window {
		return from
	}

	sorted := append([]float32(nil), env[from:to]...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	threshold := sorted[idx]

	var sum float32
	for i := from; i < from+window; i++ {
		sum += env[i]
	}
	if sum/float32(window) >= threshold {
		return from
	}

	for i := from + 1; i+window <= to; i++ {
		sum += env[i+window-1] - env[i-1]
		if sum/float32(window) >= threshold {
			return i
		}
	}

	return from
}

// findRun returns the first bucket index in [from, to) at which match holds
// for `sustain` consecutive buckets, or -1 if no such run exists.
func findRun(env []float32, from, to, sustain int64, match func(float32) bool) int64 {
	if sustain < 1 {
		sustain = 1
	}
	if from < 0 {
		from = 0
	}
	if to > int64(len(env)) {
		to = int64(len(env))
	}

	runStart := int64(-1)
	runLen := int64(0)

	for i := from; i < to; i++ {
		if match(env[i]) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen >= sustain {
				return runStart
			}
		} else {
			runLen = 0
			runStart = -1
		}
	}

	return -1
}

func samplesToBuckets(seconds float64, sampleRate int, bucket int64) int64 {
	samples := int64(math.Round(seconds * float64(sampleRate)))
	if bucket < 1 {
		bucket = 1
	}
	n := samples / bucket
	if n < 1 {
		n = 1
	}
	return n
}

func clampSample(v, max int64) int64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func dbToGain(db float64) float32 {
	return float32(math.Pow(10, db/20))
}
