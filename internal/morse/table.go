package morse

import "strings"

// codeTable ports demod_morse.c's morse_codes binary-search table as a
// map; DITs are 0b01 and DAHs are 0b10, packed MSB-first, one symbol
// added per element with the most recently keyed element in the low
// two bits.
var codeTable = map[uint64]string{
	0x0000: "<NULL>",
	0x0001: "E", 0x0002: "T",
	0x0005: "I", 0x0006: "A", 0x0009: "N", 0x000A: "M",
	0x0015: "S", 0x0016: "U", 0x0019: "R", 0x001A: "W",
	0x0025: "D", 0x0026: "K", 0x0029: "G", 0x002A: "O",
	0x0055: "H", 0x0056: "V", 0x0059: "F", 0x005A: "Ü",
	0x0065: "L", 0x0066: "Ä", 0x0069: "P", 0x006A: "J",
	0x0095: "B", 0x0096: "X", 0x0099: "C", 0x009A: "Y",
	0x00A5: "Z", 0x00A6: "Q", 0x00A9: "Ö", 0x00AA: "CH",
	0x0155: "5", 0x0156: "4", 0x0159: "<SN>", 0x015A: "3",
	0x0166: "/", 0x016A: "2",
	0x0195: "&", 0x0199: "+", 0x01AA: "1",
	0x0255: "6", 0x0256: "=", 0x0259: "/", 0x0266: "<CT>", 0x0269: "(",
	0x0295: "7", 0x02A5: "8", 0x02A9: "9", 0x02AA: "0",
	0x0555: "<ERR_6>", 0x0566: "<SK>",
	0x05A5: "?", 0x05A6: "_",
	0x0659: "\"", 0x0666: ".", 0x0699: "@", 0x06A9: "'",
	0x0956: "-", 0x096A: "<DO>", 0x0999: ";", 0x099A: "!", 0x09A6: ")",
	0x0A5A: ",", 0x0A95: ":",
	0x1555: "<ERR_7>", 0x1596: "$",
	0x2566: "<BK>",
	0x5555: "<ERR_8>",
	0x9965: "<CL>",
	0x15555: "<ERR_9>", 0x15A95: "<SOS>",
	0x55555: "<ERR_10>",
}

// decodeSequence ports decode_character: a known dit/dah sequence
// returns its character; an unknown one renders as "<.-_...>" ASCII
// art built straight from the packed 2-bit symbols, matching the
// original's fallback exactly (including its quirk of rendering any
// non-DIT symbol, DAH or otherwise, as an underscore).
func decodeSequence(seq uint64) (string, bool) {
	if ch, ok := codeTable[seq]; ok {
		return ch, true
	}

	var sb strings.Builder
	sb.WriteByte('<')
	for i := 0; i < 64; i += 2 {
		symbol := (seq >> uint(62-i)) & 0x3
		if symbol == 0 {
			continue
		}
		if symbol == ditMark {
			sb.WriteByte('.')
		} else {
			sb.WriteByte('_')
		}
	}
	sb.WriteByte('>')
	return sb.String(), false
}
