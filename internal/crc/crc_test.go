package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCCITTAcceptsAppendedFCS(t *testing.T) {
	payload := []byte("the quick brown fox")
	fcs := CCITT(payload) ^ 0xFFFF
	frame := append(append([]byte{}, payload...), byte(fcs), byte(fcs>>8))
	assert.True(t, CheckCCITT(frame))
}

func TestCheckCCITTRejectsCorruption(t *testing.T) {
	payload := []byte("the quick brown fox")
	fcs := CCITT(payload) ^ 0xFFFF
	frame := append(append([]byte{}, payload...), byte(fcs), byte(fcs>>8))
	frame[0] ^= 0x01
	assert.False(t, CheckCCITT(frame))
}

func TestCRC16CCITTMatchesKnownVector(t *testing.T) {
	// CRC-16/XMODEM (poly 0x1021, init 0x0000, no reflect) of the ASCII
	// string "123456789" is the standard check value 0x31C3.
	assert.Equal(t, uint16(0x31C3), CRC16CCITT([]byte("123456789")))
}

func TestEvenParity32(t *testing.T) {
	assert.Equal(t, uint32(0), EvenParity32(0))
	assert.Equal(t, uint32(1), EvenParity32(1))
	assert.Equal(t, uint32(0), EvenParity32(3))
	assert.Equal(t, uint32(1), EvenParity32(7))
}
