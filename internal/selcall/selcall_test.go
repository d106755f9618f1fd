package selcall

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMaxIdxPicksDominantTone(t *testing.T) {
	tones := make([]float64, 16)
	tones[5] = 100
	assert.Equal(t, 5, findMaxIdx(tones))
}

func TestFindMaxIdxRejectsCompetingTones(t *testing.T) {
	tones := make([]float64, 16)
	tones[5] = 100
	tones[6] = 20 // > 10% of the winner, ambiguous
	assert.Equal(t, -1, findMaxIdx(tones))
}

func TestFindMaxIdxRejectsSilence(t *testing.T) {
	tones := make([]float64, 16)
	assert.Equal(t, -1, findMaxIdx(tones))
}

func TestDecoderDetectsSingleDigit(t *testing.T) {
	const sampleRate = 22050
	d := NewDecoder(ZVEI1, sampleRate)

	var digits []byte
	d.OnDigit = func(dig byte) { digits = append(digits, dig) }

	freq := ZVEI1.Freqs[3]
	samplesPerBlock := sampleRate / 100
	for i := 0; i < samplesPerBlock*blockNum+samplesPerBlock; i++ {
		s := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		d.PushSample(s)
	}

	require.NotEmpty(t, digits)
	assert.Equal(t, byte('3'), digits[0])
}

func TestDecoderEmitsEndAfterTimeout(t *testing.T) {
	const sampleRate = 22050
	d := NewDecoder(CCIR, sampleRate)

	var ended bool
	d.OnEnd = func() { ended = true }

	freq := CCIR.Freqs[0]
	samplesPerBlock := sampleRate / 100
	for i := 0; i < samplesPerBlock*(blockNum+2); i++ {
		s := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		d.PushSample(s)
	}
	for i := 0; i < samplesPerBlock*(timeoutLimit+3); i++ {
		d.PushSample(0)
	}

	assert.True(t, ended)
}

func TestMinRepeatsDebouncesDigitReports(t *testing.T) {
	const sampleRate = 22050
	d := NewDecoder(EIA, sampleRate)
	d.MinRepeats = 2

	var digits []byte
	d.OnDigit = func(dig byte) { digits = append(digits, dig) }

	freq := EIA.Freqs[1]
	samplesPerBlock := sampleRate / 100
	pos := 0 // keeps the tone phase-continuous across gen calls
	gen := func(n int) {
		for i := 0; i < n; i++ {
			s := math.Sin(2 * math.Pi * freq * float64(pos) / sampleRate)
			pos++
			d.PushSample(s)
		}
	}

	// The 4-block window passes the 40% energy test only once it holds
	// two blocks of tone, so the second block is the first detected one.
	gen(2 * samplesPerBlock)
	assert.Empty(t, digits, "a single detected block should not clear MinRepeats=2")

	gen(samplesPerBlock)
	require.NotEmpty(t, digits, "a second consecutive detected block should clear MinRepeats=2")
	assert.Equal(t, byte('1'), digits[0])
}
