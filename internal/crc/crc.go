// Package crc implements the checksum and parity helpers spec.md §4.2
// calls for: CRC-CCITT (HDLC/AX.25), CRC-16/1021 (CIR), and even parity
// (POCSAG).
package crc

// crcCCITTTable is the standard CRC-CCITT (poly 0x1021, reflected) table,
// as used by HDLC framing — identical to the one in the teacher's
// ecosystem (AX.25 FCS) and in original_source/hdlc.c.
var crcCCITTTable = buildCCITTTable()

func buildCCITTTable() [256]uint16 {
	var tbl [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for b := 0; b < 8; b++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
		tbl[i] = crc
	}
	return tbl
}

// CCITT computes the reflected CRC-CCITT register (init 0xFFFF) over buf,
// byte by byte LSB-first, as HDLC framing does.
func CCITT(buf []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range buf {
		crc = (crc >> 8) ^ crcCCITTTable[(crc^uint16(b))&0xFF]
	}
	return crc
}

// CheckCCITT reports whether buf (payload plus its trailing two FCS
// bytes) passes the HDLC residue check: the running CRC-CCITT register
// must equal 0xF0B8 after consuming the whole frame, per spec.md §4.2.
func CheckCCITT(buf []byte) bool {
	return CCITT(buf) == 0xF0B8
}

// crc16Table is the non-reflected CRC-16/CCITT (poly 0x1021, init
// 0x0000) table used by the CIR protocol's trailing frame checksum.
var crc16Table = buildCRC16Table()

func buildCRC16Table() [256]uint16 {
	var tbl [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		tbl[i] = crc
	}
	return tbl
}

// CRC16CCITT computes the non-reflected CRC-16 (poly 0x1021, init 0)
// used by the CIR rail protocol.
func CRC16CCITT(buf []byte) uint16 {
	crc := uint16(0)
	for _, b := range buf {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// EvenParity32 returns 1 if x has an odd number of set bits (so that
// appending it makes the total even), 0 otherwise. Used for the
// POCSAG overall parity bit.
func EvenParity32(x uint32) uint32 {
	x ^= x >> 16
	x ^= x >> 8
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x & 1
}
