package fms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedSync drives d.rxBit with the 19-bit sync pattern, MSB first, the
// same order the bits arrive off the wire.
func feedSync(d *Decoder) {
	const pattern = uint32(syncPattern)
	for i := 18; i >= 0; i-- {
		d.rxBit(int((pattern >> uint(i)) & 1))
	}
}

func feedBits(d *Decoder, n int, bit int) {
	for i := 0; i < n; i++ {
		d.rxBit(bit)
	}
}

func TestCRCOKOnAllZeroMessage(t *testing.T) {
	assert.True(t, crcOK(0))
}

func TestCRCRejectsSingleFlippedBit(t *testing.T) {
	assert.False(t, crcOK(1<<20))
}

func TestRxBitEmitsMessageAfterSyncAndAllZeroPayload(t *testing.T) {
	var msgs []Message
	d := NewDecoder(sampleRate)
	d.OnMessage = func(m Message) { msgs = append(msgs, m) }

	feedSync(d)
	feedBits(d, 48, 0)

	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].CRCOK)
	assert.False(t, msgs[0].BitCorrected)
	assert.Equal(t, uint8(0), msgs[0].ServiceID)
}

func TestRxBitCorrectsSingleBitError(t *testing.T) {
	var msgs []Message
	d := NewDecoder(sampleRate)
	d.OnMessage = func(m Message) { msgs = append(msgs, m) }

	feedSync(d)
	// Flip message bit 5 (absolute bit 16+5=21) relative to the
	// all-zero payload; tryCorrect should find and undo exactly this
	// flip since the all-zero message is CRC-valid.
	bits := make([]int, 48)
	bits[5] = 1
	for _, b := range bits {
		d.rxBit(b)
	}

	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].BitCorrected)
}

func TestFixLocationIDSwapsNibbles(t *testing.T) {
	assert.Equal(t, uint8(0x21), fixLocationID(0x12))
}

func TestServiceNameTable(t *testing.T) {
	assert.Equal(t, "Feuerwehr", ServiceName(0x6))
	assert.Equal(t, "POLIZEI", ServiceName(0x1))
}

func TestStateNameResolvesAmbiguousEntriesByLocID(t *testing.T) {
	assert.Equal(t, "Meckl-Vorpommern", StateName(0xe, 10))
	assert.Equal(t, "Sachsen-Anhalt", StateName(0xe, 60))
}
