package bch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestFlexRoundTrip is the property from spec.md §8: encoding then
// correcting with zero injected errors always returns the original data
// unmodified and reports zero corrections.
func TestFlexRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		code := EncodeFlex(data)
		got := code
		res := CorrectFlex(&got)
		require.True(t, res.OK)
		assert.Equal(t, 0, res.Corrected)
		assert.Equal(t, code, got)
		assert.Equal(t, data, got&((1<<dataBitsFlex)-1))
	})
}

// TestFlexCorrectsSingleBit is spec.md §8's law: every single-bit flip
// is corrected back to the original codeword.
func TestFlexCorrectsSingleBit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		bit := rapid.IntRange(0, codeLen-1).Draw(t, "bit")
		code := EncodeFlex(data)
		corrupted := code ^ (1 << uint(bit))
		res := CorrectFlex(&corrupted)
		require.True(t, res.OK)
		assert.Equal(t, 1, res.Corrected)
		assert.Equal(t, code, corrupted)
	})
}

// TestFlexCorrectsAnyBitPair is spec.md §8's two-bit-error law.
func TestFlexCorrectsAnyBitPair(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		b1 := rapid.IntRange(0, codeLen-1).Draw(t, "b1")
		b2 := rapid.IntRange(0, codeLen-1).Draw(t, "b2")
		if b1 == b2 {
			b2 = (b2 + 1) % codeLen
		}
		code := EncodeFlex(data)
		corrupted := code ^ (1 << uint(b1)) ^ (1 << uint(b2))
		res := CorrectFlex(&corrupted)
		require.True(t, res.OK)
		assert.Equal(t, 2, res.Corrected)
		assert.Equal(t, code, corrupted)
	})
}

func TestFlexAlgebraicAgreesWithTable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		bit := rapid.IntRange(0, codeLen-1).Draw(t, "bit")
		code := EncodeFlex(data)
		corrupted := code ^ (1 << uint(bit))

		viaTable := corrupted
		resTable := CorrectFlex(&viaTable)

		viaAlgebra := corrupted
		resAlgebra := CorrectFlexAlgebraic(&viaAlgebra)

		require.True(t, resTable.OK)
		require.True(t, resAlgebra.OK)
		assert.Equal(t, viaTable, viaAlgebra)
		assert.Equal(t, resTable.Corrected, resAlgebra.Corrected)
	})
}

func TestPocsagRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		code := EncodePocsag(data)
		got := code
		res := CorrectPocsag(&got)
		require.True(t, res.OK)
		assert.Equal(t, 0, res.Corrected)
		assert.Equal(t, code, got)
	})
}

func TestPocsagCorrectsSingleBit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		bit := rapid.IntRange(0, 31).Draw(t, "bit")
		code := EncodePocsag(data)
		corrupted := code ^ (1 << uint(bit))
		res := CorrectPocsag(&corrupted)
		require.True(t, res.OK)
		assert.LessOrEqual(t, res.Corrected, 1)
		assert.Equal(t, code, corrupted)
	})
}

func TestPocsagCorrectsAnyBitPair(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<dataBitsFlex)-1).Draw(t, "data"))
		b1 := rapid.IntRange(0, 31).Draw(t, "b1")
		b2 := rapid.IntRange(0, 31).Draw(t, "b2")
		if b1 == b2 {
			b2 = (b2 + 1) % 32
		}
		code := EncodePocsag(data)
		corrupted := code ^ (1 << uint(b1)) ^ (1 << uint(b2))
		res := CorrectPocsag(&corrupted)
		require.True(t, res.OK)
		assert.Equal(t, code, corrupted)
	})
}

func TestCIR26RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := uint16(rapid.IntRange(0, 0xFFFF).Draw(t, "value"))
		code := EncodeCIR26(value)
		got, status := CorrectCIR26(code)
		assert.Equal(t, 0, status)
		assert.Equal(t, code, got)
	})
}

func TestCIR26CorrectsSingleBit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := uint16(rapid.IntRange(0, 0xFFFF).Draw(t, "value"))
		bit := rapid.IntRange(0, 25).Draw(t, "bit")
		code := EncodeCIR26(value)
		corrupted := code ^ (1 << uint(bit))
		got, status := CorrectCIR26(corrupted)
		assert.Equal(t, 1, status)
		assert.Equal(t, code, got)
	})
}
