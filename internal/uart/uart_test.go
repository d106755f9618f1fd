package uart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushByte8N1 feeds one idle-start-data(LSB first)-stop sequence into f.
func pushByte8N1(f *Framer, b byte) {
	f.PushBit(false) // start bit
	for i := 0; i < 8; i++ {
		f.PushBit(b&(1<<i) != 0)
	}
	f.PushBit(true) // stop bit
}

func TestFramerRoundTrip(t *testing.T) {
	var got []byte
	f := NewFramer(func(b byte) { got = append(got, b) })

	// idle mark line before the first start bit
	f.PushBit(true)
	f.PushBit(true)

	for _, want := range []byte("Hi") {
		pushByte8N1(f, want)
		f.PushBit(true) // idle between bytes
	}

	require.Len(t, got, 2)
	assert.Equal(t, []byte("Hi"), got)
}

func TestFramerReportsBadStopBit(t *testing.T) {
	var framingErr string
	f := NewFramer(func(b byte) {})
	f.OnFraming = func(err string) { framingErr = err }

	f.PushBit(true)
	f.PushBit(true)
	f.PushBit(false) // start bit
	for i := 0; i < 8; i++ {
		f.PushBit(false)
	}
	f.PushBit(false) // stop bit should be 1; this is bad framing

	assert.NotEmpty(t, framingErr)
}
