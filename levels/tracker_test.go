// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTracker_SilenceStaysAtZero(t *testing.T) {
	t.Parallel()

	tr := New(2, 256, 256, nil)
	buf := make([]float32, 256*2)
	for i := 0; i < 10; i++ {
		tr.Process(buf)
	}

	for ch := 0; ch < 2; ch++ {
		if got := tr.Level(ch); got != 0 {
			t.Errorf("Level(%d) = %v, want 0 for silence", ch, got)
		}
		if got := tr.PeakLevel(ch); got != 0 {
			t.Errorf("PeakLevel(%d) = %v, want 0 for silence", ch, got)
		}
	}
}

func TestTracker_FullScaleRaisesMagnitudeAndPeak(t *testing.T) {
	t.Parallel()

	tr := New(1, 256, 256, nil)
	buf := make([]float32, 256)
	for i := range buf {
		buf[i] = 1.0
	}

	for i := 0; i < 20; i++ {
		tr.Process(buf)
	}

	if got := tr.Level(0); got < 0.9 {
		t.Errorf("Level(0) = %v, want close to 1.0 after sustained full-scale input", got)
	}
	if got := tr.PeakLevel(0); got < 0.9 {
		t.Errorf("PeakLevel(0) = %v, want close to 1.0", got)
	}
}

func TestTracker_OutOfRangeChannelReturnsZero(t *testing.T) {
	t.Parallel()

	tr := New(2, 256, 256, nil)
	if got := tr.Level(5); got != 0 {
		t.Errorf("Level(5) = %v, want 0", got)
	}
	if got := tr.PeakLevel(-1); got != 0 {
		t.Errorf("PeakLevel(-1) = %v, want 0", got)
	}
}

func TestTracker_RegistersGaugesWhenRegistererProvided(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	tr := New(2, 256, 256, reg)
	tr.Process(make([]float32, 512))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Fatal("Gather() returned no metric families, want magnitude/peak gauges registered")
	}
}
