// Package bch implements the GF(2^5)-based BCH(31,21,2) codec shared by
// FLEX and POCSAG, plus the BCH(26,16) codec used by the CIR rail
// protocol.
package bch

// Field parameters for GF(2^5): primitive polynomial x^5+x^2+1 (0x25).
const (
	codeLen  = 31 // 2^5 - 1
	primPoly = 0x25
)

// field holds the exp/log tables for GF(2^5) plus the syndrome and
// parity lookup tables derived from them. It is built once, lazily, and
// never mutated afterward.
type field struct {
	exp [codeLen + 1]byte // alpha^i -> polynomial representation; exp[31] wraps to exp[0]
	log [codeLen + 1]byte // polynomial -> exponent i such that alpha^i = p; log[0] unused

	s1tbl [codeLen]byte // alpha^i, indexed by received-word bit position
	s3tbl [codeLen]byte // alpha^(3i)

	parityTbl [dataBitsFlex]uint16 // FLEX: 10-bit parity contributed by single data bit i
	errTbl    [1 << 10]uint32      // FLEX: (S1<<5)|S3 -> 31-bit error pattern

	pocsagParityTbl [dataBitsFlex]uint16 // POCSAG: 10-bit BCH parity contributed by single data bit i
	pocsagSynTbl    [codeLen]uint16      // POCSAG: 10-bit syndrome contributed by single codeword bit (1..31)
	pocsagErrTbl    [1 << 11]uint32      // POCSAG: 11-bit syndrome (10-bit BCH | parity bit) -> 32-bit error pattern
}

const dataBitsFlex = 21
const parityBitsFlex = 10

var f field

func init() {
	buildGF()
	buildGeneratorAndParity()
	buildErrorTables()
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[(int(f.log[a])+int(f.log[b]))%codeLen]
}

func buildGF() {
	elem := uint(1)
	for i := 0; i < codeLen; i++ {
		f.exp[i] = byte(elem)
		f.log[elem] = byte(i)
		elem <<= 1
		if elem&0x20 != 0 {
			elem ^= primPoly
		}
	}
	f.exp[codeLen] = f.exp[0]

	for i := 0; i < codeLen; i++ {
		f.s1tbl[i] = f.exp[i]
		f.s3tbl[i] = f.exp[(3*i)%codeLen]
	}
}

// genPoly is the degree-10 FLEX BCH generator polynomial, built from the
// cyclotomic cosets of {1,2,3,4} mod 31. Coefficients live in GF(2^5).
var genPoly [parityBitsFlex + 1]byte

func buildGeneratorAndParity() {
	var seen [32]bool
	var roots []int
	for r := 1; r <= 4; r++ {
		v := r
		for !seen[v] {
			seen[v] = true
			roots = append(roots, v)
			v = (v * 2) % codeLen
		}
	}

	genPoly[0] = 1
	degree := 0
	for _, r := range roots {
		alphaRoot := f.exp[r]
		for j := degree + 1; j > 0; j-- {
			genPoly[j] = genPoly[j-1] ^ gfMul(genPoly[j], alphaRoot)
		}
		genPoly[0] = gfMul(genPoly[0], alphaRoot)
		degree++
	}

	buildFlexParityTable()
	buildPocsagParityAndSyndromeTables()
}

// buildFlexParityTable runs the systematic LFSR encoder once per single
// set data bit to fill the precomputed XOR table described in spec.md
// §4.1.
func buildFlexParityTable() {
	for dataBit := 0; dataBit < dataBitsFlex; dataBit++ {
		var sr [parityBitsFlex]byte
		for i := dataBitsFlex - 1; i >= 0; i-- {
			input := byte(0)
			if i == dataBitsFlex-1-dataBit {
				input = 1
			}
			feedback := input ^ sr[parityBitsFlex-1]
			if feedback != 0 {
				for j := parityBitsFlex - 1; j > 0; j-- {
					if genPoly[j] != 0 {
						sr[j] = sr[j-1] ^ feedback
					} else {
						sr[j] = sr[j-1]
					}
				}
				if genPoly[0] != 0 {
					sr[0] = feedback
				} else {
					sr[0] = 0
				}
			} else {
				for j := parityBitsFlex - 1; j > 0; j-- {
					sr[j] = sr[j-1]
				}
				sr[0] = 0
			}
		}
		var parity uint16
		for i := 0; i < parityBitsFlex; i++ {
			if sr[i] != 0 {
				parity |= 1 << uint(parityBitsFlex-1-i)
			}
		}
		f.parityTbl[dataBit] = parity
	}
}

// pocsagGenPoly is the binary generator polynomial POCSAG uses for its
// own BCH(31,21,2) instance (octal 03551 == 0x769), applied by plain
// polynomial division rather than the GF(2^5) algebraic machinery FLEX
// uses for the same code.
const pocsagGenPoly = 0x769

func buildPocsagParityAndSyndromeTables() {
	for dataBit := 0; dataBit < dataBitsFlex; dataBit++ {
		shreg := uint32(1) << uint(dataBit+parityBitsFlex)
		for i := dataBitsFlex - 1; i >= 0; i-- {
			if shreg&(1<<uint(i+parityBitsFlex)) != 0 {
				shreg ^= pocsagGenPoly << uint(i)
			}
		}
		f.pocsagParityTbl[dataBit] = uint16(shreg & 0x3FF)
	}

	for bit := 0; bit < codeLen; bit++ {
		shreg := uint32(1) << uint(bit)
		for i := dataBitsFlex - 1; i >= 0; i-- {
			if shreg&(1<<uint(i+parityBitsFlex)) != 0 {
				shreg ^= pocsagGenPoly << uint(i)
			}
		}
		f.pocsagSynTbl[bit] = uint16(shreg & 0x3FF)
	}
}

func buildErrorTables() {
	var flexBitKey [codeLen]uint32
	for bit := 0; bit < codeLen; bit++ {
		recvIdx := 30 - bit
		s1 := uint32(f.s1tbl[recvIdx])
		s3 := uint32(f.s3tbl[recvIdx])
		key := (s1 << 5) | s3
		flexBitKey[bit] = key
		f.errTbl[key] = 1 << uint(bit)
	}
	for i := 0; i < codeLen; i++ {
		for j := i + 1; j < codeLen; j++ {
			key := flexBitKey[i] ^ flexBitKey[j]
			if f.errTbl[key] == 0 {
				f.errTbl[key] = (1 << uint(i)) | (1 << uint(j))
			}
		}
	}

	f.pocsagErrTbl[0x400] = 1 // the parity bit alone
	for i := 1; i < 32; i++ {
		syn := uint32(f.pocsagSynTbl[i-1]) | 0x400
		f.pocsagErrTbl[syn] = 1 << uint(i)
		// bit i together with the parity bit: same BCH syndrome, even parity
		f.pocsagErrTbl[uint32(f.pocsagSynTbl[i-1])] = 1 | (1 << uint(i))
	}
	for i := 1; i < 32; i++ {
		for j := i + 1; j < 32; j++ {
			syn := uint32(f.pocsagSynTbl[i-1]) ^ uint32(f.pocsagSynTbl[j-1])
			if f.pocsagErrTbl[syn] == 0 {
				f.pocsagErrTbl[syn] = (1 << uint(i)) | (1 << uint(j))
			}
		}
	}
}

func popcount32(x uint32) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

func ctz32(x uint32) int {
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

func parity32(x uint32) uint32 {
	x ^= x >> 16
	x ^= x >> 8
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x & 1
}
