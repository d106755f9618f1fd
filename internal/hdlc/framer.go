// Package hdlc implements the bit-level HDLC framer and AX.25 UI-frame
// render shared by the packet-radio demodulators, per spec.md §4.6: 0x7E
// flag hunting, stuffed-bit removal, abort detection, and an FCS check
// via internal/crc. Grounded on the teacher's bit-oriented pattern
// detector (src/hdlc_rec.go's hdlc_rec_bit) for the framer shape, and on
// original_source/hdlc.c's aprs_disp_packet/ax25_disp_packet for the
// AX.25 address-field layout.
package hdlc

import "github.com/n0call/bandscope/internal/crc"

const (
	flagPattern  = 0x7e
	abortPattern = 0xfe
	stuffMask    = 0xfc
	stuffValue   = 0x7c

	minFrameLen = 10 // fewest octets, FCS included, a flag-delimited span needs before its FCS is checked
	maxFrameLen = 512
)

// Frame is one collected, flag-delimited, destuffed, FCS-checked octet
// sequence (the FCS bytes are not included).
type Frame struct {
	Bytes []byte
}

// Framer recovers flag-delimited frames from a raw NRZI-decoded bit
// stream, bit by bit, exactly like the teacher's pattern detector: an
// 8-bit shift register is inspected after every bit for the flag,
// abort, and stuffed-zero patterns.
type Framer struct {
	patDet byte // last 8 raw bits, LSB-first shift-in

	oacc    byte // octet being accumulated, LSB-first
	olen    int  // bits accumulated into oacc; -1 means "discard until next flag"
	buf     []byte
	frameDone func(Frame)
}

// NewFramer builds a Framer that calls onFrame for every flag-to-flag
// span containing at least minFrameLen whole octets.
func NewFramer(onFrame func(Frame)) *Framer {
	return &Framer{olen: -1, frameDone: onFrame}
}

// PushBit feeds one NRZI-decoded data bit (true = 1) into the framer.
func (f *Framer) PushBit(bit bool) {
	f.patDet >>= 1
	if bit {
		f.patDet |= 0x80
	}

	switch {
	case f.patDet == flagPattern:
		f.onFlag()

	case f.patDet == abortPattern:
		// Seven 1-bits in a row: loss of signal or line abort, per
		// spec.md §4.6. Discard whatever is in progress.
		f.olen = -1
		f.buf = f.buf[:0]

	case f.patDet&stuffMask == stuffValue:
		// Five 1-bits followed by a 0: the 0 was stuffing, discard it
		// without accumulating.

	default:
		if f.olen >= 0 {
			f.oacc >>= 1
			if bit {
				f.oacc |= 0x80
			}
			f.olen++
			if f.olen == 8 {
				f.olen = 0
				if len(f.buf) < maxFrameLen {
					f.buf = append(f.buf, f.oacc)
				}
			}
		}
	}
}

func (f *Framer) onFlag() {
	if len(f.buf) >= minFrameLen && crc.CheckCCITT(f.buf) {
		frame := make([]byte, len(f.buf)-2) // trim the trailing FCS
		copy(frame, f.buf)
		if f.frameDone != nil {
			f.frameDone(Frame{Bytes: frame})
		}
	}
	f.buf = f.buf[:0]
	f.olen = 0 // start accumulating the next frame's octets
}
