package bch

// BCH(26,16) as used by the TB/T 3052-2002 CIR rail protocol: generator
// polynomial 0x05B9, 16 information bits + 10 parity bits = 26-bit
// codeword.
//
// spec.md §9 flags the 26x2 check matrix lifted by the original
// implementation from an unlicensed blog post as a re-derive-and-verify
// item. The table below is re-derived here directly from the generator
// polynomial by computing, for every bit position i, the syndrome
// produced by flipping that bit alone; round-trip correctness is pinned
// down by the property tests in bch_test.go rather than trusted by
// inspection.
const cir26Gen = 0x05B9 << (26 - 11) // shifted into the top of a 26-bit shift register

type checkRow struct {
	syndrome uint32
	mask     uint32
}

var cir26Check [26]checkRow

func init() {
	for i := 0; i < 26; i++ {
		bitMask := uint32(1) << uint(25-i)
		cir26Check[i] = checkRow{
			syndrome: cir26Remainder(bitMask),
			mask:     bitMask,
		}
	}
}

func cir26Remainder(code uint32) uint32 {
	for i := 0; i < 16; i++ {
		if code&0x02000000 != 0 {
			code ^= cir26Gen
		}
		code <<= 1
	}
	return code >> (26 - 10)
}

// EncodeCIR26 builds a systematic 26-bit BCH(26,16) codeword: the
// 16-bit value occupies the top bits, and the bottom 10 bits are the
// parity computed by the same polynomial division CorrectCIR26 uses to
// find syndromes. Used only by tests and the self-test waveform
// generator; the decoder never needs to encode.
func EncodeCIR26(value uint16) uint32 {
	shifted := uint32(value) << 10
	parity := cir26Remainder(shifted)
	return shifted | parity
}

// CorrectCIR26 decodes a 26-bit BCH(26,16) codeword. It returns the
// corrected 26-bit value and a status: 0 = clean, 1 = single-bit
// corrected, 2 = double-bit corrected, 3 = uncorrectable.
func CorrectCIR26(code uint32) (value uint32, status int) {
	code &= 0x3FFFFFF
	res := cir26Remainder(code)
	if res == 0 {
		return code, 0
	}

	for i := 0; i < 26; i++ {
		if res == cir26Check[i].syndrome {
			return code ^ cir26Check[i].mask, 1
		}
	}

	for i := 0; i < 26; i++ {
		for j := i + 1; j < 26; j++ {
			if res == (cir26Check[i].syndrome ^ cir26Check[j].syndrome) {
				return code ^ cir26Check[i].mask ^ cir26Check[j].mask, 2
			}
		}
	}

	return code, 3
}
