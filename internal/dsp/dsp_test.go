package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowpassUnityGainAtDC(t *testing.T) {
	lp := make([]float64, 31)
	Lowpass(0.1, lp, WindowHamming)
	var sum float64
	for _, v := range lp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestBandpassIsSymmetric(t *testing.T) {
	bp := make([]float64, 31)
	Bandpass(0.05, 0.15, bp, WindowBlackman)
	n := len(bp)
	for i := 0; i < n/2; i++ {
		assert.InDelta(t, bp[i], bp[n-1-i], 1e-9)
	}
}

func TestPushSampleShiftsHistory(t *testing.T) {
	h := []float64{1, 2, 3, 4}
	PushSample(5, h)
	assert.Equal(t, []float64{5, 1, 2, 3}, h)
}

func TestConvolveIsDotProduct(t *testing.T) {
	h := []float64{1, 2, 3}
	k := []float64{0.5, 0.5, 0.5}
	assert.InDelta(t, 3.0, Convolve(h, k), 1e-9)
}

func TestHammingEndpointsNearZero(t *testing.T) {
	n := 32
	assert.InDelta(t, 0.08, Hamming(n, 0), 1e-9)
	assert.InDelta(t, 0.08, Hamming(n, n-1), 1e-9)
	assert.Greater(t, Hamming(n, n/2), Hamming(n, 0))
}

func TestAGCTracksPeakAndValleyThenNormalizes(t *testing.T) {
	a := &AGC{FastAttack: 0.5, SlowDecay: 0.01}
	var last float64
	for i := 0; i < 200; i++ {
		v := math.Sin(float64(i) * 0.3)
		last = a.Update(v)
	}
	assert.Greater(t, a.Peak, a.Valley)
	assert.InDelta(t, 0, last, 0.6)
}

func TestAGCDegenerateSpanFallsBackToUnitSpan(t *testing.T) {
	a := &AGC{FastAttack: 0.5, SlowDecay: 0.5}
	out := a.Update(0)
	assert.InDelta(t, -0.5, out, 1e-9)
}
