package levels

import (
	"math"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	magnitudeSmoothing = 0.3  // ballistics toward the delayed RMS reading
	peakDecay          = 0.98 // per-block decay applied when no new peak beats the held one
)

// Tracker computes decaying per-channel magnitude and peak from mixed audio
// blocks, delayed by the device's reported output latency.
type Tracker struct {
	channels    int
	delayBlocks int

	mu         sync.Mutex
	magnitude  []float64
	peak       []float64
	historyMag [][]float64
	historyPk  [][]float64
	writeIdx   int

	gaugeMagnitude *prometheus.GaugeVec
	gaugePeak      *prometheus.GaugeVec
}

// New creates a Tracker for channels output channels. latencySamples and
// blockSize determine how many blocks the compensation delay line holds; a
// nil registerer disables metrics export.
func New(channels, latencySamples, blockSize int, registerer prometheus.Registerer) *Tracker {
	if channels < 1 {
		channels = 1
	}
	if blockSize < 1 {
		blockSize = 1
	}

	delayBlocks := latencySamples / blockSize
	if delayBlocks < 1 {
		delayBlocks = 1
	}

	t := &Tracker{
		channels:    channels,
		delayBlocks: delayBlocks,
		magnitude:   make([]float64, channels),
		peak:        make([]float64, channels),
		historyMag:  make([][]float64, delayBlocks),
		historyPk:   make([][]float64, delayBlocks),
	}
	for i := range t.historyMag {
		t.historyMag[i] = make([]float64, channels)
		t.historyPk[i] = make([]float64, channels)
	}

	if registerer != nil {
		t.gaugeMagnitude = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "medley",
			Subsystem: "level",
			Name:      "magnitude",
			Help:      "Decaying RMS playback level per output channel.",
		}, []string{"channel"})
		t.gaugePeak = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "medley",
			Subsystem: "level",
			Name:      "peak",
			Help:      "Decaying peak playback level per output channel.",
		}, []string{"channel"})
		registerer.MustRegister(t.gaugeMagnitude, t.gaugePeak)
	}

	return t
}

// Process consumes one interleaved, fully-mixed block (after the
// post-processor) and updates the per-channel readings.
func (t *Tracker) Process(buf []float32) {
	frames := len(buf) / t.channels
	if frames == 0 {
		return
	}

	curMag := make([]float64, t.channels)
	curPeak := make([]float64, t.channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < t.channels; c++ {
			v := float64(buf[i*t.channels+c])
			curMag[c] += v * v
			if av := math.Abs(v); av > curPeak[c] {
				curPeak[c] = av
			}
		}
	}
	for c := range curMag {
		curMag[c] = math.Sqrt(curMag[c] / float64(frames))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	copy(t.historyMag[t.writeIdx], curMag)
	copy(t.historyPk[t.writeIdx], curPeak)

	delayedIdx := (t.writeIdx + 1) % t.delayBlocks
	for c := 0; c < t.channels; c++ {
		delayedMag := t.historyMag[delayedIdx][c]
		delayedPeak := t.historyPk[delayedIdx][c]

		t.magnitude[c] = t.magnitude[c]*(1-magnitudeSmoothing) + delayedMag*magnitudeSmoothing
		if delayedPeak > t.peak[c] {
			t.peak[c] = delayedPeak
		} else {
			t.peak[c] *= peakDecay
		}

		if t.gaugeMagnitude != nil {
			label := strconv.Itoa(c)
			t.gaugeMagnitude.WithLabelValues(label).Set(t.magnitude[c])
			t.gaugePeak.WithLabelValues(label).Set(t.peak[c])
		}
	}

	t.writeIdx = (t.writeIdx + 1) % t.delayBlocks
}

// Level returns the current decaying magnitude for channel ch, or 0 if ch
// is out of range.
func (t *Tracker) Level(ch int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch < 0 || ch >= len(t.magnitude) {
		return 0
	}
	return t.magnitude[ch]
}

// PeakLevel returns the current decaying peak for channel ch, or 0 if ch is
// out of range.
func (t *Tracker) PeakLevel(ch int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch < 0 || ch >= len(t.peak) {
		return 0
	}
	return t.peak[ch]
}
