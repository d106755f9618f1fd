// Package morse implements the CW (continuous-wave Morse) envelope
// decoder from spec.md §4.11: an IIR low-pass envelope follower, an
// auto-adjusting detection threshold and dit/dah/gap timing, and a
// dit/dah sequence-to-character lookup. Grounded on
// original_source/demod_morse.c, ported field-for-field rather than
// redesigned — the auto-threshold and auto-timing heuristics in
// particular are exactly as hacky as the original's own comments admit.
package morse

const (
	sampleRate = 22050

	smoothingMagnitude = 9
	squelch             = 500
	holdoffMS            = 10
	autoThresholdNum      = 2
	autoThresholdDen      = 3

	ditMark = 0x1 // .
	dahMark = 0x2 // -
)

// Decoder tracks one CW envelope over a stream of demodulated audio
// samples and emits decoded characters.
type Decoder struct {
	filtered           int64
	lowpassStrength    uint

	samplesSinceChange int64
	holdoffSamples     int64

	currentState    bool
	currentSequence uint64

	signalMax          int64
	detectionThreshold int64
	thresholdCtr       int64

	timeUnitDitDahSamples int64
	timeUnitGapsSamples   int64

	DisableAutoThreshold bool
	DisableAutoTiming    bool

	DecodedChars    int
	ErroneousChars  int
	Glitches        int

	// OnChar fires once per decoded element group: ch is the rendered
	// character (or a "<..>" ASCII-art fallback), ok reports whether the
	// sequence matched a known character.
	OnChar func(ch string, ok bool)
	// OnWordBreak fires at end-of-word, after the trailing character (if
	// any) has already been reported via OnChar.
	OnWordBreak func()
}

// NewDecoder builds a Decoder at 22050 Hz, matching
// original_source/demod_morse.c's fixed sample rate, with dit/dah and
// gap timing seeded for ditLengthMS/gapLengthMS (typically equal, per
// the original's cw_dit_length/cw_gap_length defaults of 50ms each).
func NewDecoder(ditLengthMS, gapLengthMS int64) *Decoder {
	d := &Decoder{
		timeUnitDitDahSamples: sampleRate * ditLengthMS / 1000,
		timeUnitGapsSamples:   sampleRate * gapLengthMS / 1000,
		detectionThreshold:    squelch,
		lowpassStrength:       smoothingMagnitude,
		holdoffSamples:        sampleRate * holdoffMS / 1000,
		signalMax:             squelch,
	}
	return d
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// lowPass ports low_pass: an integer IIR filter tuned to avoid
// rounding bias.
func lowPass(last, sample int64, strength uint) int64 {
	return ((last << strength) + sample - last) >> strength
}

// PushSample feeds one rectified audio sample through the envelope
// follower and state machine.
func (d *Decoder) PushSample(sample float64) {
	d.filtered = lowPass(d.filtered, int64(abs64(int64(sample))), d.lowpassStrength)

	if d.samplesSinceChange < 1<<60 {
		d.samplesSinceChange++
	}

	if !d.DisableAutoThreshold {
		d.autoThreshold()
	}

	oldState := d.currentState
	if d.samplesSinceChange > d.holdoffSamples {
		d.currentState = d.filtered > d.detectionThreshold
	}

	stateChange := oldState != d.currentState
	timeout := d.samplesSinceChange == 5*d.timeUnitGapsSamples

	if !stateChange && !timeout {
		return
	}

	if d.samplesSinceChange == d.holdoffSamples+1 {
		d.Glitches++
		d.samplesSinceChange = 0
		return
	}

	if !oldState { // was LOW (silence): decide gap/EOC/EOW
		if d.samplesSinceChange >= 2*d.timeUnitGapsSamples {
			if d.currentSequence != 0 {
				ch, ok := decodeSequence(d.currentSequence)
				if ok {
					d.DecodedChars++
				} else {
					d.ErroneousChars++
				}
				if d.OnChar != nil {
					d.OnChar(ch, ok)
				}
				d.currentSequence = 0
			}

			if timeout { // end of word: neither auto_timing nor the sample-count reset runs here
				if d.OnWordBreak != nil {
					d.OnWordBreak()
				}
				return
			}
		}
	} else { // was HIGH (tone): classify dit or dah
		if d.samplesSinceChange < 2*d.timeUnitDitDahSamples {
			d.currentSequence = (d.currentSequence << 2) | ditMark
		} else {
			d.currentSequence = (d.currentSequence << 2) | dahMark
		}
	}

	if !d.DisableAutoTiming {
		d.autoTiming(oldState)
	}
	d.samplesSinceChange = 0
}

// autoThreshold ports auto_threshold: the tracked signal ceiling decays
// slowly (0.1% per 50ms tick) so the threshold follows a fading signal,
// but the threshold never drops below squelch.
func (d *Decoder) autoThreshold() {
	d.thresholdCtr = (d.thresholdCtr + 1) % (sampleRate / 20)
	if d.thresholdCtr == 0 && d.signalMax > 0 {
		d.signalMax = d.signalMax * 999 / 1000
		d.detectionThreshold = d.signalMax * autoThresholdNum / autoThresholdDen
	}
	if d.filtered > d.signalMax {
		d.signalMax = d.filtered
		d.detectionThreshold = d.signalMax * autoThresholdNum / autoThresholdDen
	}
	if d.detectionThreshold < squelch {
		d.detectionThreshold = squelch
	}
}

// autoTiming ports auto_timing: dit/dah and gap timing nudge toward
// the just-observed element duration, but only while within 120ms of
// plausible CW speeds.
func (d *Decoder) autoTiming(wasHigh bool) {
	if d.samplesSinceChange >= sampleRate*120/1000 {
		return
	}
	if !wasHigh {
		if d.timeUnitGapsSamples > d.samplesSinceChange {
			d.timeUnitGapsSamples -= 50
		} else {
			d.timeUnitGapsSamples += 50
		}
	} else {
		if d.timeUnitDitDahSamples > d.samplesSinceChange {
			d.timeUnitDitDahSamples -= 50
		} else {
			d.timeUnitDitDahSamples += 50
		}
	}
}
