// Package pocsag implements the POCSAG paging protocol's L2 state
// machine, per spec.md §4.5: bit-synchronous SYNC/ADDRESS/MESSAGE
// tracking over a 17-codeword batch, BCH(31,21,2)-protected codewords,
// and numeric/alphanumeric/"skyper" page rendering. Grounded on
// original_source/pocsag.c's do_one_bit state machine, ported with the
// brute-force bit-slice correction replaced by internal/bch's
// table-driven CorrectPocsag (spec.md §4.1 names the table approach as
// the intended implementation; the bit-slice version is the original's
// own stopgap, called out in its comments as unreviewed math).
package pocsag

import "github.com/n0call/bandscope/internal/bch"

const (
	syncWord     = 0x7cd215d8
	idleWord     = 0x7a89c197
	msgDetectBit = 0x80000000
	maxNibbles   = 2000
)

// state values keep the teacher corpus's numbering: every synchronized
// state has bit 6 set, letting a single mask distinguish "hunting for
// sync" from everything else, per original_source/pocsag.c's enum.
type state int

const (
	stateNoSync state = 0
	stateSync   state = 64
	stateLosing state = 65
	stateLost   state = 66
	stateAddr   state = 67
	stateMsg    state = 68
	stateEOM    state = 69
)

// Mode selects how a flushed page is rendered, per spec.md §4.5.
type Mode int

const (
	ModeStandard Mode = iota
	ModeNumeric
	ModeAlpha
	ModeSkyper
	ModeAuto
)

// Message is one flushed POCSAG page.
type Message struct {
	Address  int32 // -1: idle only, no address seen; -2: address undetermined (MSB-flagged codeword seen before an address codeword)
	Function int32 // -1/-2 mirror Address's sentinels; otherwise 0-3
	Mode     string
	Text     string
	LostSync bool
}

// Stats accumulates the same diagnostic counters original_source's
// pocsag_deinit reports.
type Stats struct {
	TotalBits, BitsSynced, BitsNotSynced         uint64
	TotalErrors, CorrectedErrors                 uint64
	Corrected1Bit, Corrected2Bit, Uncorrectable uint64
}

// Decoder recovers POCSAG batches bit by bit.
type Decoder struct {
	Mode        Mode
	Charset     Charset
	ECLevel     int // 0: zero-syndrome only, 1: single-bit repair, 2: also two-bit repair
	Invert      bool
	ShowPartial bool
	PruneEmpty  bool
	OnMessage   func(Message)
	OnWarning   func(string)

	state       state
	rxData      uint32
	bitInWord   int
	wordInBatch int

	numNibbles int
	buffer     []byte
	address    int32
	function   int32

	Stats Stats
}

// NewDecoder builds an idle Decoder with spec.md §4.5's default error
// correction level (2: full single- and two-bit repair).
func NewDecoder() *Decoder {
	return &Decoder{address: -1, function: -1, ECLevel: 2, Charset: CharsetUS}
}

// correct applies BCH(31,21,2) repair, gated by ECLevel: level 0 only
// accepts a clean (zero-syndrome) word, level 1 additionally accepts a
// single-bit repair, level 2 also accepts a two-bit repair.
func (d *Decoder) correct(word *uint32) bch.Result {
	orig := *word
	res := bch.CorrectPocsag(word)
	if !res.OK {
		*word = orig
		return res
	}
	if res.Corrected == 0 {
		return res
	}
	if d.ECLevel == 0 || (d.ECLevel == 1 && res.Corrected == 2) {
		*word = orig
		return bch.Result{OK: false}
	}
	return res
}

// PushBit feeds one recovered symbol bit. Bits are stored inverted from
// the caller's sense, matching original_source/pocsag.c's
// `rx_data = (rx_data<<1) | !bit` line.
func (d *Decoder) PushBit(bit bool) {
	d.Stats.TotalBits++

	in := bit
	if d.Invert {
		in = !in
	}
	stored := uint32(1)
	if in {
		stored = 0
	}
	d.rxData = (d.rxData << 1) | stored

	if d.state == stateNoSync {
		d.Stats.BitsNotSynced++
		word := d.rxData
		d.correct(&word)
		if word == syncWord {
			d.state = stateSync
			d.bitInWord = 0
			d.wordInBatch = 0
		}
		return
	}

	d.Stats.BitsSynced++
	d.bitInWord++
	if d.bitInWord != 32 {
		return
	}
	d.bitInWord = 0

	word := d.rxData
	wordIndex := d.wordInBatch
	d.wordInBatch = (d.wordInBatch + 1) % 17
	if d.state == stateSync {
		d.state = stateAddr
	}

	res := d.correct(&word)
	if !res.OK {
		d.Stats.Uncorrectable++
		if d.state != stateLost {
			d.state = stateLosing
		}
	} else {
		if res.Corrected > 0 {
			d.Stats.CorrectedErrors++
			if res.Corrected == 1 {
				d.Stats.Corrected1Bit++
			} else {
				d.Stats.Corrected2Bit++
			}
		}
		if d.state == stateLost {
			d.state = stateAddr
		}
	}
	if word == syncWord {
		return // batch boundary misaligned; realign on this sync word
	}

	for {
		switch d.state {
		case stateLosing:
			d.flush(false)
			d.state = stateLost
			return

		case stateLost:
			d.state = stateNoSync
			d.wordInBatch = 0
			return

		case stateAddr:
			if word == idleWord {
				return
			}
			if word&msgDetectBit != 0 {
				d.function = -2
				d.address = -2
				d.state = stateMsg
				continue // reprocess this same codeword as a message word
			}
			d.function = int32((word >> 11) & 3)
			d.address = int32((word>>10)&0x1FFFF8) | int32((wordIndex>>1)&7)
			d.state = stateMsg
			return

		case stateMsg:
			if word&msgDetectBit == 0 {
				d.state = stateEOM
				continue
			}
			if d.numNibbles > maxNibbles-5 {
				if d.OnWarning != nil {
					d.OnWarning("message too long")
				}
				d.state = stateEOM
				continue
			}
			d.appendNibbles(word)
			return

		case stateEOM:
			d.flush(true)
			d.numNibbles = 0
			d.address = -1
			d.function = -1
			d.state = stateAddr
			continue

		default:
			return
		}
	}
}

func (d *Decoder) appendNibbles(word uint32) {
	data := word >> 11 // 21 bits: the set detection flag plus 20 payload bits
	idx := d.numNibbles >> 1
	for len(d.buffer) < idx+3 {
		d.buffer = append(d.buffer, 0)
	}
	if d.numNibbles&1 != 0 {
		d.buffer[idx] = (d.buffer[idx] & 0xf0) | byte((data>>16)&0xf)
		d.buffer[idx+1] = byte(data >> 8)
		d.buffer[idx+2] = byte(data << 4)
	} else {
		d.buffer[idx] = byte(data >> 12)
		d.buffer[idx+1] = byte(data >> 4)
		d.buffer[idx+2] = byte(data << 4)
	}
	d.numNibbles += 5
}

func (d *Decoder) flush(sync bool) {
	if !d.ShowPartial && (d.address == -2 || d.function == -2 || !sync) {
		return
	}
	if d.PruneEmpty && d.numNibbles == 0 {
		return
	}
	if d.address == -1 && d.function == -1 {
		return
	}
	if d.numNibbles == 0 {
		if d.OnMessage != nil {
			d.OnMessage(Message{Address: d.address, Function: d.function, LostSync: !sync})
		}
		return
	}

	tbl := table(d.Charset)
	numText, numGuess := printNumeric(d.buffer, d.numNibbles)
	alphaText, alphaGuess := printAlpha(d.buffer, d.numNibbles, tbl)
	skyperText, skyperGuess := printSkyper(d.buffer, d.numNibbles, tbl)

	mode, text := d.selectRendering(numGuess, alphaGuess, skyperGuess, numText, alphaText, skyperText)
	if d.OnMessage != nil {
		d.OnMessage(Message{Address: d.address, Function: d.function, Mode: mode, Text: text, LostSync: !sync})
	}
}

func (d *Decoder) selectRendering(numGuess, alphaGuess, skyperGuess int, numText, alphaText, skyperText string) (string, string) {
	switch d.Mode {
	case ModeNumeric:
		return "numeric", numText
	case ModeAlpha:
		return "alpha", alphaText
	case ModeSkyper:
		return "skyper", skyperText
	case ModeAuto:
		unsure := numGuess < 20 && alphaGuess < 20 && skyperGuess < 20
		if numGuess >= 20 || unsure {
			return "numeric", numText
		}
		if alphaGuess >= skyperGuess {
			return "alpha", alphaText
		}
		return "skyper", skyperText
	default: // ModeStandard
		if d.function == 0 {
			return "numeric", numText
		}
		return "alpha", alphaText
	}
}

// Deinit produces the final-statistics log line original_source's
// pocsag_deinit prints, left as a returned Stats rather than printed
// here so the caller chooses its own logging facade.
func (d *Decoder) Deinit() Stats { return d.Stats }
