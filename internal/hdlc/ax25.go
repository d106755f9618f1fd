package hdlc

import "strings"

// Address is one decoded AX.25 call sign field: 6 shifted-ASCII call
// characters plus an SSID nibble, per spec.md §4.6.
type Address struct {
	Call       string
	SSID       int
	Repeated   bool // "has-been-repeated" bit, only meaningful on repeater addresses
	LastInPath bool // chain-terminator bit was set on this address
}

// decodeAddress unpacks one 7-byte AX.25 address field. Each of the
// first 6 bytes holds the call character left-shifted by one bit; the
// 7th byte packs the SSID in bits 1-4, the repeated/command bit in bit
// 7, and the address-chain terminator in bit 0.
func decodeAddress(field []byte) Address {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		c := field[i] >> 1
		if c != ' ' {
			sb.WriteByte(c)
		}
	}
	return Address{
		Call:       sb.String(),
		SSID:       int(field[6]>>1) & 0xf,
		Repeated:   field[6]&0x80 != 0,
		LastInPath: field[6]&0x01 != 0,
	}
}

func (a Address) String() string {
	if a.SSID == 0 {
		return a.Call
	}
	return a.Call + "-" + itoa(a.SSID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [4]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// UIFrame is a decoded AX.25 unnumbered-information frame: destination,
// source, the repeater path, and the information payload, per
// spec.md §4.6.
type UIFrame struct {
	Dest     Address
	Source   Address
	Repeaters []Address
	Info     string
}

// ParseUIFrame decodes an AX.25 UI frame (control 0x03, PID 0xF0 — no
// layer-3 protocol) from a destuffed, FCS-stripped frame body. It
// returns ok=false for anything that isn't a plain UI frame: too short,
// a non-UI control byte, or a non-"no layer 3" PID, mirroring the
// teacher's aprs_disp_packet header walk.
func ParseUIFrame(body []byte) (UIFrame, bool) {
	if len(body) < 15 {
		return UIFrame{}, false
	}

	dest := decodeAddress(body[0:7])
	src := decodeAddress(body[7:14])

	pos := 14
	var repeaters []Address
	last := src
	for !last.LastInPath && len(body)-pos >= 7 {
		r := decodeAddress(body[pos : pos+7])
		repeaters = append(repeaters, r)
		last = r
		pos += 7
	}

	if pos+2 > len(body) {
		return UIFrame{}, false
	}
	if body[pos] != 0x03 || body[pos+1] != 0xf0 {
		return UIFrame{}, false
	}
	pos += 2

	return UIFrame{
		Dest:      dest,
		Source:    src,
		Repeaters: repeaters,
		Info:      string(body[pos:]),
	}, true
}

// String renders a UI frame the way APRS tools conventionally do:
// SRC>DEST,REPEATER,REPEATER*:info
func (u UIFrame) String() string {
	var sb strings.Builder
	sb.WriteString(u.Source.String())
	sb.WriteByte('>')
	sb.WriteString(u.Dest.String())
	for i, r := range u.Repeaters {
		sb.WriteByte(',')
		sb.WriteString(r.String())
		if r.Repeated && i == len(u.Repeaters)-1 {
			sb.WriteByte('*')
		}
	}
	sb.WriteByte(':')
	sb.WriteString(u.Info)
	return sb.String()
}
