// Package fms implements the German BOS TR-BOS FMS (Funkmeldesystem)
// vehicle-status telegram protocol carried as 1200-baud FSK, per
// spec.md §4.10. Grounded on original_source/fms.c (sync detection,
// 48-bit message shift register, CRC check/single-bit correction, and
// field layout) and original_source/demod_fmsfsk.c (the 1200 Hz/1800 Hz
// correlator and symbol clock, here delegated to internal/symbol).
package fms

import "github.com/n0call/bandscope/internal/symbol"

const (
	sampleRate = 22050
	baud       = 1200
	freq1      = 1200 // mark ("1")
	freq0      = 1800 // space ("0")
	subsamp    = 2

	syncMask    = 0x0007FFFF
	syncPattern = 0x7FF1A
	msgBits     = 49 // sync-consumed bit plus 48 message bits
)

// Message is one decoded FMS vehicle-status telegram.
type Message struct {
	ServiceID    uint8 // BOS-Kennung
	StateID      uint8 // Landeskennung
	LocationID   uint8 // Ortskennung, corrected per TR-BOS
	VehicleID    uint16
	Status       uint8
	Direction    uint8 // 0 = vehicle->control, 1 = control->vehicle
	ShortInfo    uint8
	CRC          uint8
	CRCOK        bool
	BitCorrected bool
	Raw          uint64
}

// Decoder demodulates 1200-baud FMS FSK audio into vehicle-status
// telegrams.
type Decoder struct {
	filter *symbol.MatchedFilter
	clock  *symbol.Clock

	rxstate     uint32
	rxbitstream uint64
	rxbitcount  int

	OnMessage func(Message)
	OnWarning func(string)
}

// NewDecoder builds a Decoder for 1200-baud FMS FSK at sampleRate.
func NewDecoder(sr int) *Decoder {
	d := &Decoder{}
	cl := sr / baud
	if cl < 1 {
		cl = 1
	}
	d.filter = symbol.NewMatchedFilter(sr, baud, freq1, freq0, cl)
	d.clock = &symbol.Clock{SampleRate: sr, Baud: baud, Subsamp: subsamp}
	d.clock.Init()
	d.clock.OnSymbol = d.rxBit
	return d
}

// PushSample feeds one audio sample through the matched filter and
// symbol clock.
func (d *Decoder) PushSample(s float64) {
	stat := d.filter.Statistic(s)
	d.clock.Step(stat)
}

// rxBit ports fms_rxbit: a left-shifting sync-pattern tracker runs
// alongside a right-shifting message accumulator so the 19-bit sync
// match and the 48-bit message assembly can share one bit stream
// without either one being built backwards.
func (d *Decoder) rxBit(bit int) {
	d.rxstate = ((d.rxstate << 1) & 0x000FFFFE) | uint32(bit&1)

	if d.rxstate&syncMask == syncPattern {
		d.rxbitstream = 0
		d.rxbitcount = 1
		return
	}

	if d.rxbitcount < 1 {
		return
	}

	d.rxbitstream = (d.rxbitstream >> 1) | (uint64(bit&1) << 63)
	d.rxbitcount++

	if d.rxbitcount != msgBits {
		return
	}

	msg := d.rxbitstream
	corrected := false
	if !crcOK(msg) {
		fixed, ok := tryCorrect(msg)
		if ok {
			corrected = true
			msg = fixed | 1 // low bit marks a corrected packet, per fms.c
		}
	}

	if d.OnMessage != nil {
		d.OnMessage(decodePacket(msg, corrected))
	}
	d.rxbitcount = 0
	d.rxstate = 0
}

// tryCorrect ports fms_rxbit's single-bit-error search: flip each of
// the 48 message bits in turn and accept the first flip that restores a
// valid CRC.
func tryCorrect(msg uint64) (uint64, bool) {
	for i := 0; i < 48; i++ {
		flipped := msg ^ (1 << uint(i+16))
		if crcOK(flipped) {
			return flipped, true
		}
	}
	return msg, false
}

// crcOK ports fms_is_crc_correct's 7-bit LFSR over the 48 message bits
// starting at bit 16.
func crcOK(message uint64) bool {
	var crc [7]int
	for i := 0; i < 48; i++ {
		bit := int((message >> uint(16+i)) & 1)
		doinvert := bit ^ crc[6]
		crc[6] = crc[5] ^ doinvert
		crc[5] = crc[4]
		crc[4] = crc[3]
		crc[3] = crc[2]
		crc[2] = crc[1] ^ doinvert
		crc[1] = crc[0]
		crc[0] = doinvert
	}
	for _, b := range crc {
		if b != 0 {
			return false
		}
	}
	return true
}

// decodePacket ports fms_disp_packet's field layout.
func decodePacket(message uint64, corrected bool) Message {
	serviceID := uint8((message >> 16) & 0xF)
	stateID := uint8((message >> 20) & 0xF)
	locID := uint8((message >> 24) & 0xFF)
	vehicleID := uint16((message >> 32) & 0xFFFF)
	status := uint8((message >> 48) & 0xF)
	direction := uint8((message >> 50) & 0x1)
	shortInfo := uint8((message >> 51) & 0x3)
	crc := uint8((message >> 54) & 0x3F)

	return Message{
		ServiceID:    serviceID,
		StateID:      stateID,
		LocationID:   fixLocationID(locID),
		VehicleID:    vehicleID,
		Status:       status,
		Direction:    direction,
		ShortInfo:    shortInfo,
		CRC:          crc,
		CRCOK:        crcOK(message),
		BitCorrected: corrected,
		Raw:          message,
	}
}

// fixLocationID ports fms_disp_loc_id's nibble swap, documented in
// fms.c as a correction to match the TR-BOS field layout.
func fixLocationID(locID uint8) uint8 {
	tmp := locID >> 4
	return (locID << 4) ^ tmp
}
