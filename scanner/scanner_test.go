// SPDX-License-Identifier: EPL-2.0

package scanner

import (
	"io"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/internal/audiotest"
)

func TestBuildEnvelope_SilentTrack(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 8000)
	env, total, err := buildEnvelope(src)
	if err != nil {
		t.Fatalf("buildEnvelope() error = %v", err)
	}
	if total != 8000 {
		t.Errorf("total = %d, want 8000", total)
	}
	for i, v := range env {
		if v != 0 {
			t.Errorf("env[%d] = %v, want 0 for silence", i, v)
		}
	}
}

func TestAnalyzeEnvelope_LoudThroughout(t *testing.T) {
	t.Parallel()

	sampleRate := 8000
	bucket := bucketSize(sampleRate)
	numBuckets := int64(8000) / bucket

	env := make([]float32, numBuckets)
	for i := range env {
		env[i] = 0.8 // well above -60dBFS
	}
	total := numBuckets * bucket

	offsets := analyzeEnvelope(env, total, sampleRate, bucket)

	if offsets.FirstAudible != 0 {
		t.Errorf("FirstAudible = %d, want 0 for a loud track", offsets.FirstAudible)
	}
	// No sustained silence anywhere: last-audible/end-of-playout fall back to the end.
	if offsets.LastAudible != total {
		t.Errorf("LastAudible = %d, want %d (natural end)", offsets.LastAudible, total)
	}
	if offsets.EndOfPlayout != total {
		t.Errorf("EndOfPlayout = %d, want %d", offsets.EndOfPlayout, total)
	}
}

func TestAnalyzeEnvelope_SilentIntroThenSilentOutro(t *testing.T) {
	t.Parallel()

	sampleRate := 1000 // 1 bucket == 1 sample at this rate, keeps the test small
	bucket := bucketSize(sampleRate)

	const (
		introSilence = 50
		loudSection  = 200
		outroSilence = 2000 // well over the 1.25s (== 1250 bucket) sustain window
	)

	env := make([]float32, 0, introSilence+loudSection+outroSilence)
	for i := 0; i < introSilence; i++ {
		env = append(env, 0)
	}
	for i := 0; i < loudSection; i++ {
		env = append(env, 0.9)
	}
	for i := 0; i < outroSilence; i++ {
		env = append(env, 0)
	}
	total := int64(len(env)) * bucket

	offsets := analyzeEnvelope(env, total, sampleRate, bucket)

	if offsets.FirstAudible < introSilence-2 || offsets.FirstAudible > introSilence+2 {
		t.Errorf("FirstAudible = %d, want ~%d samples", offsets.FirstAudible, introSilence)
	}

	if offsets.LastAudible <= offsets.FirstAudible {
		t.Errorf("LastAudible (%d) should be after FirstAudible (%d)", offsets.LastAudible, offsets.FirstAudible)
	}
	if offsets.LastAudible > total {
		t.Errorf("LastAudible (%d) exceeds total (%d)", offsets.LastAudible, total)
	}
	if offsets.EndOfPlayout < offsets.LastAudible {
		t.Errorf("EndOfPlayout (%d) must be >= LastAudible (%d)", offsets.EndOfPlayout, offsets.LastAudible)
	}
}

func TestFindRun_NoMatch(t *testing.T) {
	t.Parallel()

	env := []float32{0, 0, 0, 0}
	if got := findRun(env, 0, int64(len(env)), 2, func(v float32) bool { return v > 0.5 }); got != -1 {
		t.Errorf("findRun() = %d, want -1", got)
	}
}

func TestFindRun_SustainedRun(t *testing.T) {
	t.Parallel()

	env := []float32{0, 1, 1, 1, 0}
	got := findRun(env, 0, int64(len(env)), 3, func(v float32) bool { return v > 0.5 })
	if got != 1 {
		t.Errorf("findRun() = %d, want 1", got)
	}
}

func TestDecoderFor_Unregistered(t *testing.T) {
	t.Parallel()

	s := New(audio.NewRegistry(), zerolog.Nop())
	if _, err := s.Scan("missing.xyz"); err == nil {
		t.Fatal("Scan() error = nil, want ErrUnsupportedFormat for an unregistered extension")
	}
}

func TestBuildEnvelope_PropagatesReadError(t *testing.T) {
	t.Parallel()

	src := &erroringSource{}
	if _, _, err := buildEnvelope(src); err == nil {
		t.Fatal("buildEnvelope() error = nil, want the source's read error")
	}
}

type erroringSource struct{}

func (e *erroringSource) SampleRate() int                      { return 8000 }
func (e *erroringSource) Channels() int                        { return 1 }
func (e *erroringSource) BufSize() int                         { return 4096 }
func (e *erroringSource) Close() error                         { return nil }
func (e *erroringSource) ReadSamples(dst []float32) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestAnalyzeEnvelope_EnergyPointFindsLoudWindow(t *testing.T) {
	t.Parallel()

	sampleRate := 1000
	bucket := bucketSize(sampleRate)

	env := make([]float32, 0, 3000)
	for i := 0; i < 500; i++ {
		env = append(env, 0.1) // quiet intro, still above first-audible threshold
	}
	for i := 0; i < 1000; i++ {
		env = append(env, 0.9) // loud body: the energy point should land here
	}
	for i := 0; i < 500; i++ {
		env = append(env, 0.1)
	}
	total := int64(len(env)) * bucket

	offsets := analyzeEnvelope(env, total, sampleRate, bucket)

	if offsets.EnergyPoint < 500*bucket {
		t.Errorf("EnergyPoint = %d, want it to land within the loud body (>= %d)", offsets.EnergyPoint, 500*bucket)
	}
	if offsets.EnergyPoint < offsets.FirstAudible {
		t.Errorf("EnergyPoint (%d) must be >= FirstAudible (%d)", offsets.EnergyPoint, offsets.FirstAudible)
	}
}

func TestDbToGain_Monotonic(t *testing.T) {
	t.Parallel()

	if g1, g2 := dbToGain(-60), dbToGain(-45); g1 >= g2 {
		t.Errorf("dbToGain(-60) = %v should be < dbToGain(-45) = %v", g1, g2)
	}

	if math.Abs(float64(dbToGain(0))-1.0) > 1e-6 {
		t.Errorf("dbToGain(0) = %v, want 1.0", dbToGain(0))
	}
}
