package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/n0call/bandscope/internal/cir"
	"github.com/n0call/bandscope/internal/clip"
	"github.com/n0call/bandscope/internal/config"
	"github.com/n0call/bandscope/internal/flex"
	"github.com/n0call/bandscope/internal/fms"
	"github.com/n0call/bandscope/internal/hdlc"
	"github.com/n0call/bandscope/internal/logging"
	"github.com/n0call/bandscope/internal/morse"
	"github.com/n0call/bandscope/internal/pocsag"
	"github.com/n0call/bandscope/internal/record"
	"github.com/n0call/bandscope/internal/sample"
	"github.com/n0call/bandscope/internal/selcall"
	"github.com/n0call/bandscope/internal/symbol"
)

// basebandClock drives a symbol.Clock directly off the raw sample sign,
// without a matched filter, the way demod_poc5.c's poc5_demod slices
// buffer.fbuffer directly before handing bits to pocsag_rxbit. internal/
// symbol's Clock already generalizes that nudge arithmetic (see its doc
// comment), so no separate type is needed here beyond wiring OnSymbol.
func basebandClock(sampleRate, baud int, onBit func(bool)) *symbol.Clock {
	c := &symbol.Clock{SampleRate: sampleRate, Baud: baud, Subsamp: 1}
	c.Init()
	c.OnSymbol = func(bit int) { onBit(bit != 0) }
	return c
}

// afskClock drives a matched-filter statistic into a symbol.Clock, the
// shape clip.NewDecoder and fms.NewDecoder already use internally.
func afskClock(sampleRate, baud, markFreq, spaceFreq int, onBit func(bool)) (*symbol.MatchedFilter, *symbol.Clock) {
	corrLen := sampleRate / baud
	if corrLen < 1 {
		corrLen = 1
	}
	filter := symbol.NewMatchedFilter(sampleRate, baud, markFreq, spaceFreq, corrLen)
	clock := &symbol.Clock{SampleRate: sampleRate, Baud: baud, Subsamp: 2}
	clock.Init()
	clock.OnSymbol = func(bit int) { onBit(bit != 0) }
	return filter, clock
}

// baseDemod holds the fields every wrapper below shares.
type baseDemod struct {
	name       string
	sampleRate int
	sink       *record.Sink
	log        *logging.Logger
}

func (b *baseDemod) Name() string            { return b.name }
func (b *baseDemod) SampleRate() int         { return b.sampleRate }
func (b *baseDemod) WantsIntSamples() bool   { return false }
func (b *baseDemod) Overlap() int            { return 0 }

func (b *baseDemod) emit(fields []string, payload string) {
	b.emitRecord(fields, payload, false)
}

func (b *baseDemod) emitRecord(fields []string, payload string, partial bool) {
	if err := b.sink.Emit(record.Record{Demod: b.name, Time: time.Now(), Fields: fields, Payload: payload, Partial: partial}); err != nil {
		b.log.Error("emit failed", "err", err)
	}
}

// pocsagDemod feeds raw baseband samples through a direct FSK slicer
// into internal/pocsag, per original_source/gen_pocsag.c/pocsag.c's own
// convention that POCSAG audio is already discriminator output.
type pocsagDemod struct {
	baseDemod
	clock *symbol.Clock
	dec   *pocsag.Decoder
}

func newPocsagDemod(sampleRate int, cfg config.POCSAGConfig, sink *record.Sink) *pocsagDemod {
	d := &pocsagDemod{baseDemod: baseDemod{name: "POCSAG" + fmt.Sprint(cfg.Baud), sampleRate: sampleRate, sink: sink, log: logging.For("pocsag", 0)}}
	d.dec = pocsag.NewDecoder()
	d.dec.ECLevel = cfg.ECLevel
	d.dec.ShowPartial = cfg.ShowPartial
	d.dec.PruneEmpty = cfg.PruneEmpty
	if cfg.Charset != "" {
		d.dec.Charset = pocsag.Charset(strings.ToUpper(cfg.Charset))
	}
	switch strings.ToLower(cfg.Mode) {
	case "numeric":
		d.dec.Mode = pocsag.ModeNumeric
	case "alpha":
		d.dec.Mode = pocsag.ModeAlpha
	case "skyper":
		d.dec.Mode = pocsag.ModeSkyper
	case "standard":
		d.dec.Mode = pocsag.ModeStandard
	default:
		d.dec.Mode = pocsag.ModeAuto
	}
	d.dec.OnMessage = func(m pocsag.Message) {
		if m.Address < 0 && d.dec.PruneEmpty {
			return
		}
		fields := []string{fmt.Sprint(m.Address), fmt.Sprint(m.Function), m.Mode}
		d.emitRecord(fields, m.Text, m.LostSync)
	}
	d.dec.OnWarning = func(s string) { d.log.Debug(s) }
	d.clock = basebandClock(sampleRate, cfg.Baud, d.dec.PushBit)
	return d
}

func (d *pocsagDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.clock.Step(s)
	}
}
func (d *pocsagDemod) Deinit() {
	stats := d.dec.Deinit()
	d.log.Info("pocsag stopped", "bits", stats.TotalBits, "corrected", stats.CorrectedErrors, "uncorrectable", stats.Uncorrectable)
}

// flexDemod wraps internal/flex.Decoder, which already recovers symbol
// timing itself from raw samples.
type flexDemod struct {
	baseDemod
	dec          *flex.Decoder
	groupVerbose bool
}

func newFlexDemod(sampleRate int, cfg config.FLEXConfig, sink *record.Sink) *flexDemod {
	d := &flexDemod{baseDemod: baseDemod{name: "FLEX", sampleRate: sampleRate, sink: sink, log: logging.For("flex", 0)}, groupVerbose: cfg.GroupVerbose}
	d.dec = flex.NewDecoder(sampleRate)
	d.dec.OnMessage = func(m flex.Message) {
		if m.Group && !d.groupVerbose && m.FragFlag != 'K' {
			return
		}
		fields := []string{fmt.Sprint(m.Cycle), fmt.Sprint(m.Frame), fmt.Sprint(m.Capcode), m.Type}
		d.emit(fields, m.Text)
	}
	return d
}

func (d *flexDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.dec.PushSample(s)
	}
}
func (d *flexDemod) Deinit() {}

// clipDemod and fmsDemod wrap decoders that already own a matched
// filter/clock internally.
type clipDemod struct {
	baseDemod
	dec *clip.Decoder
}

func newClipDemod(sampleRate int, sink *record.Sink) *clipDemod {
	d := &clipDemod{baseDemod: baseDemod{name: "CLIP", sampleRate: sampleRate, sink: sink, log: logging.For("clip", 0)}}
	d.dec = clip.NewDecoder(sampleRate)
	d.dec.OnMessage = func(m clip.Message) {
		fields := []string{m.Type}
		for k, v := range m.Elements {
			fields = append(fields, k+"="+v)
		}
		d.emit(fields, "")
	}
	d.dec.OnWarning = func(s string) { d.log.Debug(s) }
	return d
}

func (d *clipDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.dec.PushSample(s)
	}
}
func (d *clipDemod) Deinit() {}

type fmsDemod struct {
	baseDemod
	dec *fms.Decoder
}

func newFmsDemod(sampleRate int, sink *record.Sink) *fmsDemod {
	d := &fmsDemod{baseDemod: baseDemod{name: "FMS", sampleRate: sampleRate, sink: sink, log: logging.For("fms", 0)}}
	d.dec = fms.NewDecoder(sampleRate)
	d.dec.OnMessage = func(m fms.Message) {
		fields := []string{fmt.Sprint(m.ServiceID), fmt.Sprint(m.StateID), fmt.Sprint(m.VehicleID), fmt.Sprint(m.Status)}
		if !m.CRCOK {
			fields = append(fields, "badcrc")
		}
		d.emit(fields, "")
	}
	return d
}

func (d *fmsDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.dec.PushSample(s)
	}
}
func (d *fmsDemod) Deinit() {}

// cirDemod feeds a direct baseband FSK slicer (cirfsk, per
// original_source/cir.c's own naming) into internal/cir's bit-level
// frame assembler.
type cirDemod struct {
	baseDemod
	clock *symbol.Clock
	dec   *cir.Decoder
}

const cirBaud = 1200

func newCirDemod(sampleRate int, sink *record.Sink) *cirDemod {
	d := &cirDemod{baseDemod: baseDemod{name: "CIRFSK", sampleRate: sampleRate, sink: sink, log: logging.For("cir", 0)}}
	d.dec = cir.NewDecoder()
	d.dec.OnFrame = func(f cir.Frame) {
		d.emit(nil, fmt.Sprintf("% X", f.Payload))
	}
	d.dec.OnBadFrame = func(f cir.BadFrame) {
		d.log.Debug("cir frame failed CRC", "errors", f.Errors)
	}
	d.clock = basebandClock(sampleRate, cirBaud, d.dec.PushBit)
	return d
}

func (d *cirDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.clock.Step(s)
	}
}
func (d *cirDemod) Deinit() {}

// hdlcDemod recovers Bell 202 AFSK (mark 1200 Hz, space 2200 Hz, 1200
// baud — the same tone pair as CLIP) into NRZI-decoded bits before
// handing them to internal/hdlc's bit-level framer, per
// src/hdlc_rec.go's dbit := (raw == prevRaw) NRZI rule.
type hdlcDemod struct {
	baseDemod
	filter  *symbol.MatchedFilter
	clock   *symbol.Clock
	framer  *hdlc.Framer
	prevRaw bool
	haveRaw bool
}

const (
	hdlcBaud  = 1200
	hdlcMark  = 1200
	hdlcSpace = 2200
)

func newHdlcDemod(sampleRate int, sink *record.Sink) *hdlcDemod {
	d := &hdlcDemod{baseDemod: baseDemod{name: "HDLC", sampleRate: sampleRate, sink: sink, log: logging.For("hdlc", 0)}}
	d.framer = hdlc.NewFramer(func(f hdlc.Frame) {
		if uiFrame, ok := hdlc.ParseUIFrame(f.Bytes); ok {
			d.emit([]string{uiFrame.String()}, "")
		} else {
			d.emit(nil, fmt.Sprintf("% X", f.Bytes))
		}
	})
	d.filter, d.clock = afskClock(sampleRate, hdlcBaud, hdlcMark, hdlcSpace, d.onRawBit)
	return d
}

func (d *hdlcDemod) onRawBit(raw bool) {
	if d.haveRaw {
		d.framer.PushBit(raw == d.prevRaw)
	}
	d.prevRaw = raw
	d.haveRaw = true
}

func (d *hdlcDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		stat := d.filter.Statistic(s)
		d.clock.Step(stat)
	}
}
func (d *hdlcDemod) Deinit() {}

// selcallDemod runs one tone-bank variant.
type selcallDemod struct {
	baseDemod
	dec *selcall.Decoder
}

func newSelcallDemod(sampleRate int, variant selcall.Variant, minRepeats int, sink *record.Sink) *selcallDemod {
	d := &selcallDemod{baseDemod: baseDemod{name: variant.Name, sampleRate: sampleRate, sink: sink, log: logging.For("selcall", 0)}}
	d.dec = selcall.NewDecoder(variant, sampleRate)
	if minRepeats > 0 {
		d.dec.MinRepeats = minRepeats
	}
	var pending strings.Builder
	d.dec.OnDigit = func(digit byte) { pending.WriteByte(digit) }
	d.dec.OnEnd = func() {
		if pending.Len() > 0 {
			d.emit(nil, pending.String())
			pending.Reset()
		}
	}
	return d
}

func variantByName(name string) (selcall.Variant, bool) {
	switch strings.ToLower(name) {
	case "ccir":
		return selcall.CCIR, true
	case "eea":
		return selcall.EEA, true
	case "eia":
		return selcall.EIA, true
	case "zvei1":
		return selcall.ZVEI1, true
	case "zvei3":
		return selcall.ZVEI3, true
	default:
		return selcall.Variant{}, false
	}
}

func (d *selcallDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.dec.PushSample(s)
	}
}
func (d *selcallDemod) Deinit() {}

// morseDemod wraps internal/morse's envelope follower.
type morseDemod struct {
	baseDemod
	dec *morse.Decoder
	buf strings.Builder
}

func newMorseDemod(sampleRate int, cfg config.MorseConfig, sink *record.Sink) *morseDemod {
	d := &morseDemod{baseDemod: baseDemod{name: "MORSE", sampleRate: sampleRate, sink: sink, log: logging.For("morse", 0)}}
	dit, gap := int64(cfg.DitLengthMS), int64(cfg.GapLengthMS)
	if dit <= 0 {
		dit = 50
	}
	if gap <= 0 {
		gap = 50
	}
	d.dec = morse.NewDecoder(dit, gap)
	d.dec.OnChar = func(ch string, ok bool) {
		d.buf.WriteString(ch)
		if !ok {
			d.log.Debug("unmatched morse sequence", "seq", ch)
		}
	}
	d.dec.OnWordBreak = func() {
		d.buf.WriteByte(' ')
	}
	return d
}

func (d *morseDemod) Process(block sample.Block) {
	for _, s := range block.Float {
		d.dec.PushSample(s)
	}
}
func (d *morseDemod) Deinit() {
	if d.buf.Len() > 0 {
		d.emit(nil, d.buf.String())
	}
	d.log.Info("morse stopped", "decoded", d.dec.DecodedChars, "erroneous", d.dec.ErroneousChars, "glitches", d.dec.Glitches)
}
