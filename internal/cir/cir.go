// Package cir implements the TB/T 3052-2002 rail-signalling protocol
// decoder, per spec.md §4.8: a 64-bit preamble/frame-sync detector, a
// stream of BCH(26,16)-protected 16-bit words, and a length-prefixed,
// CRC-16/1021-checked payload. Grounded on original_source/cir.c.
package cir

import (
	"github.com/n0call/bandscope/internal/bch"
	"github.com/n0call/bandscope/internal/crc"
)

const (
	preambleWord  = 0x55555555
	frameSyncWord = 0x0DD4259F
	maxFECErrors  = 3 // spec.md §4.8: three or more consecutive BCH failures abort the frame
)

// Frame is one successfully decoded CIR payload, CRC already verified.
type Frame struct {
	Payload []byte
}

// BadFrame is reported when a length-complete payload fails its CRC-16
// check; Errors holds the BCH correction count (0-3) for each decoded
// 16-bit word, for diagnostics.
type BadFrame struct {
	Payload []byte
	Errors  []int
}

// Decoder recovers CIR frames bit by bit from a demodulated FSK bit
// stream.
type Decoder struct {
	syncHi, syncLo uint32
	bitCount       int
	bitstream      uint32

	buf      []byte
	errs     []int
	length   int
	fecFails int

	OnFrame    func(Frame)
	OnBadFrame func(BadFrame)
}

// NewDecoder builds an idle Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func actualLength(length int) int {
	if length%2 != 0 {
		length++
	}
	return length + 2
}

// PushBit feeds one recovered bit into the sync detector / frame
// assembler.
func (d *Decoder) PushBit(bit bool) {
	if d.bitCount == 0 {
		d.syncHi = (d.syncHi << 1) | (d.syncLo >> 31)
		b := uint32(0)
		if bit {
			b = 1
		}
		d.syncLo = (d.syncLo << 1) | b

		preambleErrors := popcount32(d.syncHi ^ preambleWord)
		frameSyncErrors := popcount32(d.syncLo ^ frameSyncWord)
		if (preambleErrors+frameSyncErrors <= 4) || (preambleErrors <= 6 && frameSyncErrors <= 2) {
			d.syncHi, d.syncLo = 0, 0
			d.bitstream = 0
			d.bitCount = 1
			d.buf = d.buf[:0]
			d.errs = d.errs[:0]
			d.fecFails = 0
		}
		return
	}

	b := uint32(0)
	if bit {
		b = 1
	}
	d.bitstream = (d.bitstream << 1) | b

	if d.bitCount%26 == 0 {
		corrected, status := bch.CorrectCIR26(d.bitstream)
		decoded := uint16(corrected >> 10)

		if status >= maxFECErrors {
			d.fecFails++
			decoded = uint16(d.bitstream >> 10)
			if d.fecFails >= maxFECErrors {
				d.bitCount = 0
				return
			}
		} else {
			d.fecFails = 0
		}
		d.bitstream = 0

		if d.bitCount == 26 {
			// The header word (mode byte, length byte) carries no payload
			// bytes of its own; the byte buffer accumulates only the
			// groups that follow it.
			length := int(decoded & 0xff)
			d.length = length
			d.errs = d.errs[:0]
			if length == 0 {
				d.bitCount = 0
				return
			}
			d.bitCount++
			return
		}

		d.buf = append(d.buf, byte(decoded>>8), byte(decoded))
		d.errs = append(d.errs, status)

		if len(d.buf) == actualLength(d.length) {
			d.finishFrame()
			d.bitCount = 0
			return
		}
	}
	d.bitCount++
}

func (d *Decoder) finishFrame() {
	want := crc.CRC16CCITT(d.buf[:d.length])
	got := uint16(d.buf[d.length])<<8 | uint16(d.buf[d.length+1])
	payload := append([]byte{}, d.buf[:d.length+2]...)
	if want == got {
		if d.OnFrame != nil {
			d.OnFrame(Frame{Payload: payload})
		}
		return
	}
	if d.OnBadFrame != nil {
		d.OnBadFrame(BadFrame{Payload: payload, Errors: append([]int{}, d.errs...)})
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
