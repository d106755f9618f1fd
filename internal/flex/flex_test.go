package flex

import (
	"testing"

	"github.com/n0call/bandscope/internal/bch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopcount32(t *testing.T) {
	assert.Equal(t, 0, popcount32(0))
	assert.Equal(t, 32, popcount32(0xFFFFFFFF))
	assert.Equal(t, 4, popcount32(0x0F))
}

func TestFlexSyncCheckMatchesMarkerAndComplement(t *testing.T) {
	codehigh := uint32(0x870C)
	codelow := ^codehigh & 0xFFFF
	buf := (uint64(codehigh) << 48) | (uint64(syncMarker) << 16) | uint64(codelow)

	assert.Equal(t, codehigh, flexSyncCheck(buf))
}

func TestFlexSyncCheckRejectsGarbage(t *testing.T) {
	assert.Equal(t, uint32(0), flexSyncCheck(0x1234567887654321))
}

func TestDecodeModeResolvesKnownSyncCodes(t *testing.T) {
	d := NewDecoder(22050)
	d.decodeMode(0x870C)
	assert.Equal(t, 1600, d.syncBaud)
	assert.Equal(t, 2, d.syncLevels)

	d2 := NewDecoder(22050)
	d2.decodeMode(0xDEA0)
	assert.Equal(t, 3200, d2.syncBaud)
	assert.Equal(t, 4, d2.syncLevels)
}

func TestDecodeModeWarnsOnUnknownSync(t *testing.T) {
	var warned bool
	d := NewDecoder(22050)
	d.OnWarning = func(string) { warned = true }
	d.decodeMode(0xFFFF)
	assert.True(t, warned)
	assert.Zero(t, d.syncBaud)
}

// buildFIW hand-packs a frame info word with a valid nibble checksum
// (sum of all five nibbles plus the top fix3 bit, mod 16, must be 0xF)
// and BCH-encodes it the way the transmitter would.
func buildFIW(cycleno, frameno, fix3 int) uint32 {
	raw := uint32(cycleno&0xF) << 4
	raw |= uint32(frameno&0x7F) << 8
	raw |= uint32(fix3&0x3F) << 15

	checksum := raw & 0xF
	checksum += (raw >> 4) & 0xF
	checksum += (raw >> 8) & 0xF
	checksum += (raw >> 12) & 0xF
	checksum += (raw >> 16) & 0xF
	checksum += (raw >> 20) & 0x01
	checksum &= 0xF

	need := (0xF - checksum) & 0xF
	raw |= need

	return bch.EncodeFlex(raw)
}

func TestDecodeFIWAcceptsValidChecksum(t *testing.T) {
	d := NewDecoder(22050)
	d.fiwRaw = buildFIW(3, 10, 0)

	ok := d.decodeFIW()
	require.True(t, ok)
	assert.Equal(t, 3, d.cycleno)
	assert.Equal(t, 10, d.frameno)
}

func TestDecodeFIWRejectsUncorrectableWord(t *testing.T) {
	var warned string
	d := NewDecoder(22050)
	d.OnWarning = func(s string) { warned = s }
	d.fiwRaw = buildFIW(3, 10, 0) ^ 0x5A5A5A5A

	ok := d.decodeFIW()
	assert.False(t, ok)
	assert.NotEmpty(t, warned)
}

func TestExpireGroupsClearsPassedRegistrations(t *testing.T) {
	d := NewDecoder(22050)
	d.groups[2].capcodes = []int64{42}
	d.groups[2].frame = 1
	d.groups[2].cycle = 3

	d.cycleno = 3
	d.frameno = 5
	d.expireGroups()

	assert.Equal(t, -1, d.groups[2].frame)
}

func TestExpireGroupsKeepsUpcomingRegistrations(t *testing.T) {
	d := NewDecoder(22050)
	d.groups[2].capcodes = []int64{42}
	d.groups[2].frame = 9
	d.groups[2].cycle = 3

	d.cycleno = 3
	d.frameno = 5
	d.expireGroups()

	assert.Equal(t, 9, d.groups[2].frame)
}

func TestRenderNumericDecodesBCDDigits(t *testing.T) {
	d := NewDecoder(22050)
	msg := Message{}

	var words [phaseWords]uint32
	words[0] = uint32(1) << 7 // w1 field = 1, w2-offset field = 0
	words[1] = uint32(1)<<6 | uint32(2)<<10 | uint32(3)<<14
	words[2] = 0

	d.renderNumeric(&msg, pageStandardNumeric, 0, false, &words)

	assert.Equal(t, "numeric", msg.Type)
	assert.Equal(t, "0123000000", msg.Text)
}

func TestRenderAlphanumericDecodesASCIITriplet(t *testing.T) {
	d := NewDecoder(22050)
	msg := Message{}

	var words [phaseWords]uint32
	words[0] = uint32('A') | uint32('B')<<7 | uint32('C')<<14
	d.renderAlphanumeric(&msg, 0, 1, 0, 0, &words)

	assert.Equal(t, "alphanumeric", msg.Type)
	assert.Equal(t, byte('C'), msg.FragFlag)
	assert.Equal(t, "ABC", msg.Text)
}

func TestRenderAlphanumericDropsFirstCharOnCompleteFragment(t *testing.T) {
	d := NewDecoder(22050)
	msg := Message{}

	var words [phaseWords]uint32
	words[0] = uint32('A') | uint32('B')<<7 | uint32('C')<<14
	d.renderAlphanumeric(&msg, 0, 1, 0x3, 0, &words)

	assert.Equal(t, byte('K'), msg.FragFlag)
	assert.Equal(t, "BC", msg.Text)
}

func TestRegisterGroupAccumulatesCapcodes(t *testing.T) {
	d := NewDecoder(22050)
	d.frameno = 1

	d.registerGroup(0, 50, 100)
	d.registerGroup(0, 50, 200)

	assert.Equal(t, []int64{100, 200}, d.groups[0].capcodes)

	flushed := d.flushGroup(0)
	assert.Equal(t, []int64{100, 200}, flushed)
	assert.Empty(t, d.groups[0].capcodes)
}

func TestDecoderLocksOntoRepeatingBitPattern(t *testing.T) {
	d := NewDecoder(22050)
	d.baud = 1600
	symbols := (lockLen + 4) * 2

	// 0x6666... pattern in rectified-symbol terms is an alternating
	// 1,0 dibit sequence; feed enough periods to pass LOCK_LEN and
	// assert the decoder transitions out of the unlocked search state.
	// Symbol boundaries follow the exact 22050/1600 sample period rather
	// than a truncated whole-sample count, so the stream runs at 1600 baud.
	for n := 0; n < symbols*d.sampleFreq/d.baud; n++ {
		level := -1.0
		if (n*d.baud/d.sampleFreq)%2 == 0 {
			level = 1.0
		}
		d.PushSample(level)
	}

	assert.True(t, d.locked)
}
