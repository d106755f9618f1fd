package genwave

import "github.com/n0call/bandscope/internal/bch"

const (
	flexSyncMarker    = 0xA6C6AAAA
	flexSync1600_2FSK = 0x870C
	flexBaud          = 1600
	flexWordsPerPhase = 88

	flexPageTypeAlphanumeric = 5
)

// FLEXConfig describes one alphanumeric page to synthesize, mirroring
// original_source/gen_flex.c's struct gen_params.p.flex fields. Only
// the single-phase alphanumeric frame shape is built, matching
// gen_init_flex.
type FLEXConfig struct {
	Capcode   uint32
	Cycle     int
	Frame     int
	Message   string
	Errors    int // 0 disables; FIW corruption only applies for 1 or 2
	Amplitude int16
}

// buildSync1 ports build_sync1: the 64-bit SYNC1 word is the sync code
// for 1600-baud 2-FSK, the fixed marker, and the sync code's bitwise
// complement.
func buildSync1() uint64 {
	syncCode := uint16(flexSync1600_2FSK)
	complement := syncCode ^ 0xFFFF
	return uint64(syncCode)<<48 | uint64(flexSyncMarker)<<16 | uint64(complement)
}

// buildFIW ports build_fiw: the Frame Information Word packs a cycle
// number and frame number with a checksum nibble chosen so the nibble
// sum (plus bit 20) totals 0xF, then BCH-encodes the 21-bit result.
func buildFIW(cycle, frame int) uint32 {
	fiw := uint32(cycle&0xF) << 4
	fiw |= uint32(frame&0x7F) << 8

	sum := int((fiw >> 4) & 0xF)
	sum += int((fiw >> 8) & 0xF)
	sum += int((fiw >> 12) & 0xF)
	sum += int((fiw >> 16) & 0xF)
	sum += int((fiw >> 20) & 0x1)
	checksum := (0xF - sum) & 0xF

	fiw |= uint32(checksum)
	return bch.EncodeFlex(fiw)
}

// buildBIW ports build_biw: the Block Information Word records where
// the address and vector fields start within the phase.
func buildBIW(voffset, aoffset int) uint32 {
	biw := uint32(aoffset&0x3) << 8
	biw |= uint32(voffset&0x3F) << 10
	return bch.EncodeFlex(biw)
}

// buildAddress ports build_address: the decoder recovers a capcode by
// subtracting 0x8000 from the address word, so the generator adds it
// back.
func buildAddress(capcode uint32) uint32 {
	return bch.EncodeFlex((capcode + 0x8000) & 0x1FFFFF)
}

// buildVector ports build_vector: message type, start word, and word
// count packed into the layout the decoder's vector-word parse
// expects.
func buildVector(msgType, msgStart, msgLen int) uint32 {
	vec := uint32(msgType&0x7) << 4
	vec |= uint32(msgStart&0x7F) << 7
	vec |= uint32(msgLen&0x7F) << 14
	return bch.EncodeFlex(vec)
}

func buildMessageWord(data uint32) uint32 {
	return bch.EncodeFlex(data & 0x1FFFFF)
}

// encodeFlexMessage ports encode_message: 7-bit ASCII characters are
// packed 3-per-21-bit-word. skipFirstChar leaves the first 7 bits of
// the first word empty, matching the decoder's convention for a
// frag==3 (complete, unfragmented) message header.
func encodeFlexMessage(msg string, maxWords int, skipFirstChar bool) []uint32 {
	bitPos := 0
	if skipFirstChar {
		bitPos = 7
	}
	var words []uint32
	var current uint32

	for i := 0; i < len(msg) && len(words) < maxWords; i++ {
		ch := uint32(msg[i]) & 0x7F
		current |= ch << uint(bitPos)
		bitPos += 7

		if bitPos >= 21 {
			words = append(words, current&0x1FFFFF)
			current = ch >> uint(7-(bitPos-21))
			bitPos -= 21
		}
	}
	if bitPos > 0 && len(words) < maxWords {
		words = append(words, current&0x1FFFFF)
	}
	return words
}

// BuildFLEXBits assembles one complete FLEX frame: 960-bit idle
// preamble, SYNC1, 16-bit dotting, the FIW, a SYNC2 idle gap, and the
// 11-block bit-interleaved data phase, per gen_init_flex.
func BuildFLEXBits(cfg FLEXConfig) []bool {
	codewords := make([]uint32, flexWordsPerPhase)
	for i := range codewords {
		if i%2 == 0 {
			codewords[i] = bch.EncodeFlex(0x0AAAAA)
		} else {
			codewords[i] = bch.EncodeFlex(0x155555)
		}
	}

	msgWords := encodeFlexMessage(cfg.Message, 84, true)

	const (
		voffset  = 2
		aoffset  = 0
		msgStart = 3
	)
	totalMsgWords := len(msgWords) + 1

	codewords[0] = buildBIW(voffset, aoffset)
	codewords[1] = buildAddress(cfg.Capcode)
	codewords[2] = buildVector(flexPageTypeAlphanumeric, msgStart, totalMsgWords)

	msgHeader := uint32(3) << 11 // frag=3 (complete message), cont=0
	codewords[msgStart] = buildMessageWord(msgHeader)

	for i := 0; i < len(msgWords) && msgStart+1+i < flexWordsPerPhase; i++ {
		codewords[msgStart+1+i] = buildMessageWord(msgWords[i])
	}

	seed := uint32(12345)
	if cfg.Errors > 0 {
		for i := 0; i < 10 && i < len(codewords); i++ {
			codewords[i] = lcgErrors(codewords[i], cfg.Errors, &seed, 0, 31)
		}
	}

	var bits []bool

	for i := 0; i < 960; i++ {
		bits = append(bits, i&1 == 1)
	}

	bits = appendSync1Inverted(bits, buildSync1())

	for i := 0; i < 16; i++ {
		bits = append(bits, i&1 == 1)
	}

	fiw := buildFIW(cfg.Cycle, cfg.Frame)
	if cfg.Errors > 0 && cfg.Errors <= 2 {
		fiw = lcgErrors(fiw, cfg.Errors, &seed, 0, 31)
	}
	bits = appendWordBitsLSB(bits, fiw, 32)

	for i := 0; i < 40; i++ {
		bits = append(bits, i&1 == 1)
	}

	for block := 0; block < 11; block++ {
		baseCW := block * 8
		for bit := 0; bit < 32; bit++ {
			for cwInBlock := 0; cwInBlock < 8; cwInBlock++ {
				cw := baseCW + cwInBlock
				bits = append(bits, (codewords[cw]>>uint(bit))&1 == 1)
			}
		}
	}

	for i := 0; i < 64; i++ {
		bits = append(bits, i&1 == 1)
	}

	return bits
}

// appendSync1Inverted ports add_bits_msb_inv: SYNC1 is transmitted MSB
// first with every bit inverted, matching the sync detector's
// negative-mark-is-1 convention.
func appendSync1Inverted(bits []bool, sync1 uint64) []bool {
	for i := 63; i >= 0; i-- {
		bits = append(bits, (sync1>>uint(i))&1 == 0)
	}
	return bits
}

// FLEXSamples expands BuildFLEXBits into PCM samples at 1600 baud: bit
// 1 maps to a positive sample, bit 0 to negative, per gen_flex.
func FLEXSamples(cfg FLEXConfig) []int16 {
	ampl := cfg.Amplitude
	if ampl == 0 {
		ampl = 10000
	}
	bits := BuildFLEXBits(cfg)
	return bitsToSamples(bits, flexBaud, func(bit bool) int16 {
		if bit {
			return ampl
		}
		return -ampl
	})
}
