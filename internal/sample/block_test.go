package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloatRange(t *testing.T) {
	assert.InDelta(t, 0, ToFloat(0), 1e-9)
	assert.InDelta(t, 32767.0/32768.0, ToFloat(32767), 1e-9)
	assert.InDelta(t, -1.0, ToFloat(-32768), 1e-9)
}

func TestFillConvertsWholeBlock(t *testing.T) {
	b := Block{Int16: []int16{0, 16384, -16384}}
	b.Fill()
	require := assert.New(t)
	require.Len(b.Float, 3)
	require.InDelta(0, b.Float[0], 1e-9)
	require.InDelta(0.5, b.Float[1], 1e-9)
	require.InDelta(-0.5, b.Float[2], 1e-9)
}

func TestFillReusesCapacity(t *testing.T) {
	b := Block{Int16: []int16{1, 2, 3}}
	b.Fill()
	prevCap := cap(b.Float)
	b.Int16 = []int16{4, 5}
	b.Fill()
	assert.Equal(t, prevCap, cap(b.Float))
	assert.Len(t, b.Float, 2)
}
