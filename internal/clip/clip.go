// Package clip implements the ETSI EN 300 659-3 Calling Line
// Identification Presentation (CLIP) protocol carried as V.23 FSK over
// the analogue phone line between ring bursts, per spec.md §4.9.
// Grounded on original_source/clip.c (packet framing and information
// element dump) and original_source/demod_clipfsk.c (the 1200-baud
// mark/space correlator and symbol clock, here delegated to
// internal/symbol and internal/uart).
package clip

import (
	"fmt"
	"strings"

	"github.com/n0call/bandscope/internal/symbol"
	"github.com/n0call/bandscope/internal/uart"
)

const (
	sampleRate = 22050
	baud       = 1200
	markFreq   = 1200
	spaceFreq  = 2200
	corrLen    = sampleRate / baud
	subsamp    = 2

	maxPacket = 512 // rxbuf size in clip.c's l1_state_clipfsk
)

// Message is one decoded CLIP packet: a message type plus the parsed
// information elements it carried.
type Message struct {
	Type     string
	Elements map[string]string
	Raw      []byte
}

// Decoder demodulates V.23 FSK audio into CLIP packets.
type Decoder struct {
	filter *symbol.MatchedFilter
	clock  *symbol.Clock
	framer *uart.Framer

	buf []byte

	OnMessage func(Message)
	OnWarning func(string)
}

// NewDecoder builds a Decoder for 1200-baud V.23 CLIP FSK at sampleRate.
func NewDecoder(sr int) *Decoder {
	d := &Decoder{}
	cl := sr / baud
	if cl < 1 {
		cl = 1
	}
	d.filter = symbol.NewMatchedFilter(sr, baud, markFreq, spaceFreq, cl)
	d.clock = &symbol.Clock{SampleRate: sr, Baud: baud, Subsamp: subsamp}
	d.clock.Init()
	d.framer = uart.NewFramer(d.onByte)
	d.framer.OnFraming = func(s string) {
		if d.OnWarning != nil {
			d.OnWarning(s)
		}
	}
	d.framer.OnIdle = d.Flush
	d.clock.OnSymbol = d.onBit
	return d
}

// PushSample feeds one audio sample through the matched filter and
// symbol clock.
func (d *Decoder) PushSample(s float64) {
	stat := d.filter.Statistic(s)
	d.clock.Step(stat)
}

func (d *Decoder) onBit(bit int) {
	d.framer.PushBit(bit != 0)
}

// onByte ports clip_rxbit's tail: the framer already recovered the
// byte, so all that remains is clip.c's start/stop-bit packet
// delimiting (two idle bits flush the accumulated packet).
func (d *Decoder) onByte(b byte) {
	if len(d.buf) >= maxPacket {
		if d.OnWarning != nil {
			d.OnWarning("packet size too large")
		}
		d.buf = d.buf[:0]
		return
	}
	d.buf = append(d.buf, b)
}

// Flush ports the "no start bit" / "consecutive stop bits" branch of
// clip_rxbit: the line has gone idle, so whatever is buffered is a
// complete packet (or nothing, if the line was already idle).
func (d *Decoder) Flush() {
	if len(d.buf) < 1 {
		d.buf = d.buf[:0]
		return
	}
	d.dispatch(d.buf)
	d.buf = d.buf[:0]
}

func checksum256(buf []byte) byte {
	var sum int
	for _, b := range buf {
		sum += int(b)
	}
	return byte(sum % 256)
}

// dispatch ports clip_disp_packet: validate the mod-256 checksum, then
// walk the message-type byte followed by TLV-coded information
// elements.
func (d *Decoder) dispatch(bp []byte) {
	if len(bp) < 5 {
		return
	}
	if checksum256(bp) != 0 {
		return
	}

	raw := append([]byte(nil), bp...)
	msgType, body := bp[0], bp[1:len(bp)-1] // drop type byte and trailing checksum

	name, ok := messageTypeName(msgType)
	if !ok {
		if d.OnWarning != nil {
			d.OnWarning(fmt.Sprintf("unknown CLIP message type 0x%02x", msgType))
		}
		return
	}

	msg := Message{Type: name, Elements: map[string]string{}, Raw: raw}
	if len(body) == 0 {
		if d.OnMessage != nil {
			d.OnMessage(msg)
		}
		return
	}

	msgLen := int(body[0])
	params := body[1:]
	if msgLen > len(body) {
		if d.OnWarning != nil {
			d.OnWarning(fmt.Sprintf("broken packet len=%d", msgLen))
		}
	}

	for msgLen > 2 && len(params) > 0 {
		tag := params[0]
		params = params[1:]
		msgLen--
		if len(params) == 0 {
			break
		}
		paramLen := int(params[0])
		params = params[1:]
		if paramLen > len(params) {
			paramLen = len(params)
		}
		value := params[:paramLen]
		params = params[paramLen:]
		msgLen -= paramLen + 1

		key, text := parseElement(tag, value)
		if key != "" {
			msg.Elements[key] = text
		}
	}

	if d.OnMessage != nil {
		d.OnMessage(msg)
	}
}

func messageTypeName(b byte) (string, bool) {
	switch b {
	case 0x80:
		return "call-setup", true
	case 0x82:
		return "message-waiting", true
	case 0x04, 0x84, 0x85:
		return "reserved", true
	case 0x86:
		return "advice-of-charge", true
	case 0x89:
		return "short-message-service", true
	default:
		return "", false
	}
}

// dispParm ports disp_parm: printable ASCII passes through, everything
// else becomes a '.' placeholder.
func dispParm(value []byte) string {
	var sb strings.Builder
	for _, b := range value {
		if b >= 32 && b < 128 {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// parseElement ports clip_disp_packet's information-element switch.
// Only the element text is returned; the indicator-byte sub-decoding
// the original printed inline is folded into the text for the few
// elements that carry one.
func parseElement(tag byte, value []byte) (string, string) {
	switch tag {
	case 0x01:
		return "date", dispParm(value)
	case 0x02:
		return "calling-line-id", dispParm(value)
	case 0x03:
		return "called-line-id", dispParm(value)
	case 0x04:
		return "reason-absence-cli", withIndicator(value)
	case 0x07:
		return "calling-party-name", dispParm(value)
	case 0x08:
		return "reason-absence-cnt", withIndicator(value)
	case 0x0B:
		return "visual-indicator", withVisualIndicator(value)
	case 0x0D:
		return "message-id", withMessageID(value)
	case 0x11:
		return "call-type", withCallType(value)
	case 0x13:
		if len(value) > 0 {
			return "messages-waiting", fmt.Sprintf("%d", value[0])
		}
		return "messages-waiting", ""
	case 0x20:
		return "charge", dispParm(value)
	case 0x21:
		return "additional-charge", dispParm(value)
	case 0x50:
		return "display-information", dispParm(value)
	case 0x55:
		return "service-information", withServiceIndicator(value)
	default:
		return fmt.Sprintf("unknown-0x%02x", tag), dispParm(value)
	}
}

func withIndicator(value []byte) string {
	text := dispParm(value)
	if len(value) == 0 {
		return text
	}
	switch value[0] {
	case 'O':
		return text + " (unavailable)"
	case 'P':
		return text + " (private, CLIR involved)"
	default:
		return text
	}
}

func withVisualIndicator(value []byte) string {
	text := dispParm(value)
	if len(value) == 0 {
		return text
	}
	switch value[0] {
	case 0:
		return text + " (deactivation)"
	case 0xff:
		return text + " (activation)"
	default:
		return text
	}
}

func withMessageID(value []byte) string {
	text := dispParm(value)
	if len(value) == 0 {
		return text
	}
	switch value[0] {
	case 0:
		return text + " (removed message)"
	case 0x55:
		return text + " (message reference only)"
	case 0xff:
		return text + " (added message)"
	default:
		return text
	}
}

func withCallType(value []byte) string {
	text := dispParm(value)
	if len(value) == 0 {
		return text
	}
	switch value[0] {
	case 0:
		return text + " (voice call)"
	case 0x02:
		return text + " (ring-back-when-free)"
	case 0x81:
		return text + " (message waiting call)"
	default:
		return text
	}
}

func withServiceIndicator(value []byte) string {
	text := dispParm(value)
	if len(value) == 0 {
		return text
	}
	switch value[0] {
	case 0:
		return text + " (service not active)"
	case 0xff:
		return text + " (service active)"
	default:
		return text
	}
}
