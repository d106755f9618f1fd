package cir

import (
	"testing"

	"github.com/n0call/bandscope/internal/bch"
	"github.com/n0call/bandscope/internal/crc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushUint32MSB feeds the 32 bits of v into d, most significant first.
func pushUint32MSB(d *Decoder, v uint32) {
	for i := 31; i >= 0; i-- {
		d.PushBit(v&(1<<uint(i)) != 0)
	}
}

// pushCodeword feeds one BCH(26,16)-encoded 16-bit value's 26 bits.
func pushCodeword(d *Decoder, value uint16) {
	code := bch.EncodeCIR26(value)
	for i := 25; i >= 0; i-- {
		d.PushBit(code&(1<<uint(i)) != 0)
	}
}

func TestDecoderAcceptsCleanFrame(t *testing.T) {
	payload := []byte("ABCDEF")
	sum := crc.CRC16CCITT(payload)

	var got []Frame
	d := NewDecoder()
	d.OnFrame = func(f Frame) { got = append(got, f) }

	pushUint32MSB(d, preambleWord)
	pushUint32MSB(d, frameSyncWord)

	modeLength := uint16(len(payload)) // mode word 0x00, length in the low byte
	pushCodeword(d, modeLength)
	for i := 0; i < len(payload); i += 2 {
		pushCodeword(d, uint16(payload[i])<<8|uint16(payload[i+1]))
	}
	pushCodeword(d, sum)

	require.Len(t, got, 1)
	assert.Equal(t, append(append([]byte{}, payload...), byte(sum>>8), byte(sum)), got[0].Payload)
}

func TestDecoderRejectsBadCRC(t *testing.T) {
	payload := []byte("ABCDEF")

	var frames []Frame
	var bad []BadFrame
	d := NewDecoder()
	d.OnFrame = func(f Frame) { frames = append(frames, f) }
	d.OnBadFrame = func(b BadFrame) { bad = append(bad, b) }

	pushUint32MSB(d, preambleWord)
	pushUint32MSB(d, frameSyncWord)

	pushCodeword(d, uint16(len(payload)))
	for i := 0; i < len(payload); i += 2 {
		pushCodeword(d, uint16(payload[i])<<8|uint16(payload[i+1]))
	}
	pushCodeword(d, 0x0000) // wrong checksum

	assert.Empty(t, frames)
	require.Len(t, bad, 1)
}
