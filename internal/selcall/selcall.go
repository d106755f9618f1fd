// Package selcall implements the five-number selective-calling tone
// banks (CCIR 1000, EEA, EIA, ZVEI1, ZVEI3), per spec.md §4.7. Each
// variant is sixteen single-tone digits detected by Goertzel-style
// quadrature energy accumulation over a sliding 4-block window,
// grounded on original_source/selcall.c and its five demod_*.c
// frequency tables.
package selcall

import "math"

const (
	blockNum     = 4
	timeoutLimit = 5
)

// Variant names the sixteen tone frequencies (Hz) assigned to hex
// digits 0..F for one tone-bank standard.
type Variant struct {
	Name  string
	Freqs [16]float64
}

var (
	CCIR = Variant{Name: "CCIR", Freqs: [16]float64{
		1981, 1124, 1197, 1275, 1358, 1446, 1540, 1640,
		1747, 1860, 2400, 930, 2247, 991, 2110, 1055,
	}}
	EEA = Variant{Name: "EEA", Freqs: [16]float64{
		1981, 1124, 1197, 1275, 1358, 1446, 1540, 1640,
		1747, 1860, 1055, 930, 2400, 991, 2110, 2247,
	}}
	EIA = Variant{Name: "EIA", Freqs: [16]float64{
		600, 741, 882, 1023, 1164, 1305, 1446, 1587,
		1728, 1869, 2151, 2433, 2010, 2292, 459, 1091,
	}}
	ZVEI1 = Variant{Name: "ZVEI1", Freqs: [16]float64{
		2400, 1060, 1160, 1270, 1400, 1530, 1670, 1830,
		2000, 2200, 2800, 810, 970, 885, 2600, 680,
	}}
	ZVEI3 = Variant{Name: "ZVEI3", Freqs: [16]float64{
		2400, 1060, 1160, 1270, 1400, 1530, 1670, 1830,
		2000, 2200, 885, 810, 2800, 680, 970, 2600,
	}}
)

const digitGlyphs = "0123456789ABCDEF"

// Decoder tracks one selective-call tone bank over a stream of
// demodulated audio samples.
type Decoder struct {
	variant    Variant
	sampleRate int
	blockLen   int
	phaseInc   [16]float64
	phase      [16]float64

	energy   [blockNum]float64
	tenergy  [blockNum][32]float64
	blkPos   int

	timeout  int
	reported int

	// MinRepeats debounces a digit detection across at least this many
	// consecutive blocks before it is reported, per SPEC_FULL.md's
	// supplemented selective-call configurability. 1 reproduces the
	// upstream behavior of reporting on the first detected block.
	MinRepeats int
	repeatRun  int
	pendingDig int

	OnDigit func(digit byte)
	OnEnd   func()
}

// NewDecoder builds a Decoder for one tone-bank variant at the given
// sample rate.
func NewDecoder(v Variant, sampleRate int) *Decoder {
	d := &Decoder{variant: v, sampleRate: sampleRate, blockLen: sampleRate / 100, reported: -1, pendingDig: -1, MinRepeats: 1}
	for i, f := range v.Freqs {
		d.phaseInc[i] = 2 * math.Pi * f / float64(sampleRate)
	}
	return d
}

// PushSample feeds one audio sample through the quadrature correlators.
func (d *Decoder) PushSample(s float64) {
	d.energy[0] += s * s
	for i := 0; i < 16; i++ {
		d.tenergy[0][i] += math.Cos(d.phase[i]) * s
		d.tenergy[0][i+16] += math.Sin(d.phase[i]) * s
		d.phase[i] += d.phaseInc[i]
		if d.phase[i] > 2*math.Pi {
			d.phase[i] -= 2 * math.Pi
		}
	}

	d.blkPos++
	if d.blkPos >= d.blockLen {
		d.blkPos = 0
		d.processBlock()
	}
}

// processBlock ports selcall.c's process_block + the digit-change
// dispatch at the tail of selcall_demod. MinRepeats generalizes the
// upstream "report on change" gate into "report once a digit has held
// for MinRepeats consecutive blocks" so a caller can trade latency for
// noise immunity; MinRepeats=1 reproduces the upstream behavior.
func (d *Decoder) processBlock() {
	digit := d.detectDigit()

	copy(d.energy[1:], d.energy[:blockNum-1])
	d.energy[0] = 0
	copy(d.tenergy[1:], d.tenergy[:blockNum-1])
	d.tenergy[0] = [32]float64{}

	switch {
	case digit < 0:
		d.pendingDig = -1
		d.repeatRun = 0
		if d.reported >= 0 {
			d.timeout++
		}
	case digit == d.pendingDig:
		d.repeatRun++
	default:
		d.pendingDig = digit
		d.repeatRun = 1
	}

	if digit >= 0 {
		d.timeout = 1
		if d.repeatRun >= d.MinRepeats && d.reported != digit {
			d.reported = digit
			if d.OnDigit != nil {
				d.OnDigit(digitGlyphs[digit])
			}
		}
	}

	if d.timeout > timeoutLimit+1 {
		if d.OnEnd != nil {
			d.OnEnd()
		}
		d.timeout = 0
		d.reported = -1
	}
}

// detectDigit ports process_block's total/per-tone energy summation
// and findMaxIdx's argmax-with-competing-tone-rejection.
func (d *Decoder) detectDigit() int {
	var tote float64
	for i := 0; i < blockNum; i++ {
		tote += d.energy[i]
	}

	var totte [32]float64
	for i := 0; i < 32; i++ {
		for j := 0; j < blockNum; j++ {
			totte[i] += d.tenergy[j][i]
		}
	}
	var tone [16]float64
	for i := 0; i < 16; i++ {
		tone[i] = totte[i]*totte[i] + totte[i+16]*totte[i+16]
	}

	tote *= float64(blockNum*d.blockLen) * 0.5

	idx := findMaxIdx(tone[:])
	if idx < 0 {
		return -1
	}
	if tote*0.4 > tone[idx] {
		return -1
	}
	return idx
}

// findMaxIdx ports find_max_idx: the winning tone must exceed every
// other tone's energy by at least a factor of ten.
func findMaxIdx(f []float64) int {
	en := 0.0
	idx := -1
	for i, v := range f {
		if v > en {
			en = v
			idx = i
		}
	}
	if idx < 0 {
		return -1
	}
	en *= 0.1
	for i, v := range f {
		if i != idx && v > en {
			return -1
		}
	}
	return idx
}
