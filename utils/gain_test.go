// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"below range", -0.5, 0},
		{"above range", 1.5, 1},
		{"in range", 0.3, 0.3},
		{"exact zero", 0, 0},
		{"exact one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Clamp01(tt.in); got != tt.want {
				t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampF64(t *testing.T) {
	t.Parallel()

	if got := ClampF64(150, 0, 100); got != 100 {
		t.Errorf("ClampF64(150, 0, 100) = %v, want 100", got)
	}

	if got := ClampF64(-10, 0, 100); got != 0 {
		t.Errorf("ClampF64(-10, 0, 100) = %v, want 0", got)
	}

	if got := ClampF64(50, 0, 100); got != 50 {
		t.Errorf("ClampF64(50, 0, 100) = %v, want 50", got)
	}
}

func TestApplyGainRamp_ConstantGain(t *testing.T) {
	t.Parallel()

	buf := []float32{1, 1, 1, 1, 1, 1}
	ApplyGainRamp(buf, 2, 0.5, 0.5)

	for i, v := range buf {
		if math.Abs(float64(v-0.5)) > 1e-6 {
			t.Errorf("buf[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestApplyGainRamp_FadeOut(t *testing.T) {
	t.Parallel()

	// 4 mono frames fading 1.0 -> 0.0
	buf := []float32{1, 1, 1, 1}
	ApplyGainRamp(buf, 1, 1.0, 0.0)

	if buf[0] != 1.0 {
		t.Errorf("first frame = %v, want 1.0", buf[0])
	}
	if buf[len(buf)-1] != 0.0 {
		t.Errorf("last frame = %v, want 0.0", buf[len(buf)-1])
	}
	for i := 1; i < len(buf); i++ {
		if buf[i] > buf[i-1] {
			t.Errorf("gain ramp is not monotonically decreasing at index %d", i)
		}
	}
}

func TestApplyGainRamp_StereoSharesGainAcrossChannels(t *testing.T) {
	t.Parallel()

	buf := []float32{1, 2, 1, 2}
	ApplyGainRamp(buf, 2, 1.0, 1.0)

	if buf[0] != 1 || buf[1] != 2 || buf[2] != 1 || buf[3] != 2 {
		t.Errorf("unexpected result: %v", buf)
	}
}

func TestApplyGainRamp_SingleFrameUsesEndGain(t *testing.T) {
	t.Parallel()

	buf := []float32{1, 1}
	ApplyGainRamp(buf, 2, 1.0, 0.25)

	if buf[0] != 0.25 || buf[1] != 0.25 {
		t.Errorf("single-frame ramp = %v, want [0.25 0.25]", buf)
	}
}

func TestApplyGainRamp_EmptyBuffer(t *testing.T) {
	t.Parallel()

	var buf []float32
	ApplyGainRamp(buf, 2, 1.0, 0.0) // must not panic
}

func TestApplyStopRamp_FadesThenZeroes(t *testing.T) {
	t.Parallel()

	buf := make([]float32, 8) // 8 mono frames
	for i := range buf {
		buf[i] = 1.0
	}
	ApplyStopRamp(buf, 1, 4)

	if buf[0] != 1.0 {
		t.Errorf("buf[0] = %v, want 1.0 (ramp starts at full volume)", buf[0])
	}
	for i := 4; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Errorf("buf[%d] = %v, want 0 past the ramp window", i, buf[i])
		}
	}
	for i := 1; i < 4; i++ {
		if buf[i] > buf[i-1] {
			t.Errorf("ramp not monotonically decreasing at index %d", i)
		}
	}
}

func TestApplyStopRamp_RampLongerThanBlockClampsToBlock(t *testing.T) {
	t.Parallel()

	buf := []float32{1, 1, 1, 1}
	ApplyStopRamp(buf, 1, 256) // must not panic or overrun
	if buf[len(buf)-1] != 0 {
		t.Errorf("last frame = %v, want 0", buf[len(buf)-1])
	}
}

func TestApplyStartRamp_FadesInThenLeavesRestAlone(t *testing.T) {
	t.Parallel()

	buf := make([]float32, 8) // 8 mono frames
	for i := range buf {
		buf[i] = 1.0
	}
	ApplyStartRamp(buf, 1, 4)

	if buf[0] != 0 {
		t.Errorf("buf[0] = %v, want 0 (ramp starts at silence)", buf[0])
	}
	if buf[3] != 1.0 {
		t.Errorf("buf[3] = %v, want 1.0 (ramp window ends at full volume)", buf[3])
	}
	for i := 4; i < len(buf); i++ {
		if buf[i] != 1.0 {
			t.Errorf("buf[%d] = %v, want 1.0 (untouched past the ramp window)", i, buf[i])
		}
	}
	for i := 1; i < 4; i++ {
		if buf[i] < buf[i-1] {
			t.Errorf("ramp not monotonically increasing at index %d", i)
		}
	}
}

func TestApplyStartRamp_RampLongerThanBlockClampsToBlock(t *testing.T) {
	t.Parallel()

	buf := []float32{1, 1, 1, 1}
	ApplyStartRamp(buf, 1, 256) // must not panic or overrun
	if buf[0] != 0 {
		t.Errorf("first frame = %v, want 0", buf[0])
	}
}
