package morse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSequenceKnownLetter(t *testing.T) {
	ch, ok := decodeSequence(0x0006) // .-
	assert.True(t, ok)
	assert.Equal(t, "A", ch)
}

func TestDecodeSequenceUnknownRendersASCIIArt(t *testing.T) {
	ch, ok := decodeSequence(0x3) // single undecodable 2-bit symbol (0b11)
	assert.False(t, ok)
	assert.Equal(t, "<_>", ch)
}

func TestDecodeSequenceUnknownMultiSymbol(t *testing.T) {
	ch, ok := decodeSequence(0xB) // 0b1011: symbol 0b10 then 0b11
	assert.False(t, ok)
	assert.Equal(t, "<__>", ch)
}

func TestLowPassPassesThroughAtZeroStrength(t *testing.T) {
	assert.Equal(t, int64(1000), lowPass(0, 1000, 0))
}

// feed pushes n samples of the given amplitude through d.
func feed(d *Decoder, n int, amp float64) {
	for i := 0; i < n; i++ {
		d.PushSample(amp)
	}
}

// TestDecodesSingleDitAsE drives the decoder through a hand-timed
// dit-then-gap-then-next-tone sequence with lowpassStrength forced to 0
// (an identity filter) so the envelope tracks the input amplitude on
// the very next sample, making the sample counts exact.
func TestDecodesSingleDitAsE(t *testing.T) {
	d := NewDecoder(50, 50)
	d.lowpassStrength = 0
	d.holdoffSamples = 10
	d.timeUnitDitDahSamples = 50
	d.timeUnitGapsSamples = 50
	d.detectionThreshold = 100
	d.DisableAutoThreshold = true
	d.DisableAutoTiming = true

	var chars []string
	var oks []bool
	wordBreaks := 0
	d.OnChar = func(ch string, ok bool) { chars = append(chars, ch); oks = append(oks, ok) }
	d.OnWordBreak = func() { wordBreaks++ }

	feed(d, 15, 0)    // settle past holdoff while low
	feed(d, 30, 1000) // a dit-length tone (transition fires on sample 1, total stays under 2*50=100)
	feed(d, 150, 0)   // gap long enough for EOC (>=100) but short of EOW (<250)
	feed(d, 1, 1000)  // next tone's onset triggers the EOC decode

	require.Len(t, chars, 1)
	assert.Equal(t, "E", chars[0])
	assert.True(t, oks[0])
	assert.Equal(t, 0, wordBreaks)
	assert.Equal(t, 1, d.DecodedChars)
	assert.Equal(t, 0, d.Glitches)
}

func TestAutoThresholdNeverDropsBelowSquelch(t *testing.T) {
	d := NewDecoder(50, 50)
	d.signalMax = 1
	d.detectionThreshold = 1
	d.autoThreshold()
	assert.GreaterOrEqual(t, d.detectionThreshold, int64(squelch))
}
