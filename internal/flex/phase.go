package flex

import (
	"fmt"
	"strings"

	"github.com/n0call/bandscope/internal/bch"
)

// decodePhase ports decode_phase: BCH-correct all 88 codewords in this
// phase, parse the block information word to find the address and
// vector tables, then dispatch each vector to its page-type renderer.
func (d *Decoder) decodePhase(phase byte, pb *phaseBuf) {
	var words [phaseWords]uint32
	for i := range pb.buf {
		w := pb.buf[i]
		res := bch.CorrectFlex(&w)
		if !res.OK {
			w = 0x1FFFFF // treat as idle/unreadable rather than garbage
		}
		words[i] = w & 0x1FFFFF
	}

	biw := words[0]
	if biw == 0 || biw == 0x1FFFFF {
		return
	}

	aoffset := int((biw>>8)&0x3) + 1
	voffset := int((biw >> 10) & 0x3F)
	if voffset < aoffset {
		return
	}

	for i := aoffset; i < voffset; i++ {
		if words[i] == 0 || words[i] == 0x1FFFFF {
			continue
		}
		skip := d.decodeAddress(phase, &words, i, aoffset, voffset)
		if skip {
			i++ // long address consumed the next AW/VW pair too
		}
	}
}

// decodeAddress parses one AIW/VIW pair starting at address slot i, and
// returns whether the entry used a long (double-slot) address so the
// caller should skip the following pair.
func (d *Decoder) decodeAddress(phase byte, words *[phaseWords]uint32, i, aoffset, voffset int) bool {
	aiw := words[i]

	long := aiw < 0x8001 || (aiw > 0x1E0000 && aiw < 0x1F0001) || aiw > 0x1F7FFE

	var capcode int64
	if long {
		if i+1 >= phaseWords {
			return false
		}
		capcode = (int64(words[i+1]^0x1FFFFF) << 15) + 2068480 + int64(aiw)
	} else {
		capcode = int64(aiw) - 0x8000
	}
	if capcode < 0 || capcode > 4297068542 {
		return long
	}

	groupMessage := capcode >= 2029568 && capcode <= 2029583
	groupBit := int(capcode - 2029568)
	if groupMessage && long {
		return false // not valid by spec, drop
	}

	j := voffset + i - aoffset
	if j >= phaseWords {
		return long
	}
	viw := words[j]
	msgType := pageType((viw >> 4) & 0x7)
	mw1 := int((viw >> 7) & 0x7F)
	wordLen := int((viw >> 14) & 0x7F)

	var hdr int
	if long {
		hdr = j + 1
		if wordLen >= 1 {
			wordLen--
		}
	} else {
		hdr = mw1
		mw1++
		if !groupMessage && wordLen >= 1 {
			wordLen--
		}
	}
	if hdr >= phaseWords {
		return long
	}
	frag := int((words[hdr] >> 11) & 0x3)
	cont := int((words[hdr] >> 10) & 0x1)

	if msgType == pageShortInstruction {
		siGroupBit := int((viw >> 17) & 0x7F)
		d.registerGroup(siGroupBit, int((viw>>10)&0x7F), capcode)
		return long
	}

	if wordLen < 1 || mw1 < (voffset+(voffset-aoffset)) || mw1 >= phaseWords {
		return long
	}
	if mw1+wordLen > phaseWords {
		wordLen = phaseWords - mw1
	}
	if msgType.isTone() {
		mw1, wordLen = 0, 0
	}

	msg := Message{
		Baud:        d.syncBaud,
		Levels:      d.syncLevels,
		Phase:       phase,
		Cycle:       d.cycleno,
		Frame:       d.frameno,
		Capcode:     capcode,
		LongAddress: long,
		Group:       groupMessage,
	}
	if groupMessage {
		msg.GroupCapcodes = d.flushGroup(groupBit)
	}

	switch {
	case msgType.isAlphanumeric():
		d.renderAlphanumeric(&msg, mw1, wordLen, frag, cont, words)
	case msgType.isNumeric():
		d.renderNumeric(&msg, msgType, j, long, words)
	case msgType.isTone():
		d.renderTone(&msg, j, long, words)
	default:
		d.renderUnknown(&msg, msgType, mw1, wordLen, words)
	}

	if d.OnMessage != nil && msg.Type != "" {
		d.OnMessage(msg)
	}
	return long
}

// registerGroup ports the FLEX_PAGETYPE_SHORT_INSTRUCTION branch of
// decode_phase: it enrolls capcode against groupBit's expected
// frame/cycle so a later group alphanumeric page can report every
// capcode that subscribed to it.
func (d *Decoder) registerGroup(groupBit, assignedFrame int, capcode int64) {
	if groupBit < 0 || groupBit >= groupBits {
		return
	}
	reg := d.groups[groupBit]
	reg.capcodes = append(reg.capcodes, capcode)
	if assignedFrame > d.frameno {
		reg.frame = assignedFrame
		reg.cycle = d.cycleno
		return
	}
	reg.frame = assignedFrame
	if d.cycleno == 15 {
		reg.cycle = 0
	} else {
		reg.cycle = d.cycleno + 1
	}
}

func (d *Decoder) flushGroup(groupBit int) []int64 {
	if groupBit < 0 || groupBit >= groupBits {
		return nil
	}
	reg := d.groups[groupBit]
	codes := reg.capcodes
	d.groups[groupBit] = newGroupReg()
	return codes
}

func fragFlag(frag, cont int) byte {
	switch {
	case cont == 0 && frag == 3:
		return 'K' // complete
	case cont == 0 && frag != 3:
		return 'C' // incomplete until a following fragment appends
	default:
		return 'F' // incomplete until a continuation arrives
	}
}

// renderAlphanumeric ports parse_alphanumeric: each body word packs
// three 7-bit ASCII characters low-to-high; the very first character is
// dropped when frag == 3 (it is a repeat of the fragment marker, not
// message text).
func (d *Decoder) renderAlphanumeric(msg *Message, mw1, length, frag, cont int, words *[phaseWords]uint32) {
	msg.Type = "alphanumeric"
	msg.FragFlag = fragFlag(frag, cont)

	var sb strings.Builder
	for i := 0; i < length; i++ {
		dw := words[mw1+i]
		if i > 0 || frag != 0x3 {
			addChar(&sb, byte(dw&0x7F))
		}
		addChar(&sb, byte((dw>>7)&0x7F))
		addChar(&sb, byte((dw>>14)&0x7F))
		if sb.Len() >= maxALN {
			break
		}
	}
	msg.Text = sb.String()
}

func addChar(sb *strings.Builder, ch byte) {
	if ch == 0 {
		return
	}
	sb.WriteByte(ch)
}

const flexBCD = "0123456789 U -]["

// renderNumeric ports parse_numeric: BCD digits packed 4 bits wide,
// LSB-first, across consecutive data words starting just past the
// header/continuation word, skipping 2 leading bits (10 for numbered
// pages carrying a message-number prefix) before the first digit.
func (d *Decoder) renderNumeric(msg *Message, kind pageType, j int, long bool, words *[phaseWords]uint32) {
	msg.Type = "numeric"
	msg.FragFlag = 'K'

	viw := words[j]
	w1 := int((viw >> 7) & 0x7F)
	w2 := int((viw>>14)&0x7) + w1

	var first uint32
	if long {
		if j+1 >= phaseWords {
			return
		}
		first = words[j+1]
	} else {
		if w1 >= phaseWords {
			return
		}
		first = words[w1]
		w1++
		w2++
	}

	skip := 2
	if kind == pageNumberedNumeric {
		skip = 10
	}

	var bits []byte
	collect := func(w uint32) {
		for k := 0; k < 21; k++ {
			bits = append(bits, byte(w&1))
			w >>= 1
		}
	}
	collect(first)
	for i := w1; i <= w2 && i < phaseWords; i++ {
		collect(words[i])
	}

	var sb strings.Builder
	for pos := skip; pos+4 <= len(bits); pos += 4 {
		var nibble byte
		for b := 0; b < 4; b++ {
			nibble |= bits[pos+b] << uint(b)
		}
		if nibble != 0xC { // filler glyph, dropped to close gaps between numbers
			sb.WriteByte(flexBCD[nibble])
		}
	}
	msg.Text = sb.String()
}

// renderTone ports parse_tone_only: a 2-bit message-type field in the
// vector word selects short-numeric (BCD digits packed at fixed offsets) versus
// pure tone-only (no payload).
func (d *Decoder) renderTone(msg *Message, j int, long bool, words *[phaseWords]uint32) {
	msg.Type = "tone"
	msg.FragFlag = 'K'

	viw := words[j]
	kind := (viw >> 7) & 0x3
	if kind != 0 {
		return
	}

	var sb strings.Builder
	for i := 9; i <= 17; i += 4 {
		sb.WriteByte(flexBCD[(viw>>uint(i))&0xF])
	}
	if long && j+1 < phaseWords {
		cont := words[j+1]
		for i := 0; i <= 16; i += 4 {
			sb.WriteByte(flexBCD[(cont>>uint(i))&0xF])
		}
	}
	msg.Text = sb.String()
}

func (d *Decoder) renderUnknown(msg *Message, kind pageType, mw1, length int, words *[phaseWords]uint32) {
	msg.Type = "unknown"
	parts := []string{fmt.Sprintf("type=%d", int(kind))}
	for i := 0; i < length && mw1+i < phaseWords; i++ {
		parts = append(parts, fmt.Sprintf("%05X", words[mw1+i]))
	}
	msg.Text = strings.Join(parts, " ")
}
