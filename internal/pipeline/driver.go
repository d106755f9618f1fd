// Package pipeline implements the sample-driven demodulator scheduling
// contract from spec.md §2 and §5: one producer hands sample blocks to a
// driver, which calls every enabled demodulator's Process synchronously
// and in configuration order, preserving an overlap tail between blocks
// so matched filters never see a discontinuity at a block boundary.
package pipeline

import (
	"fmt"

	"github.com/n0call/bandscope/internal/sample"
)

// Demodulator is the interface every protocol's L1+L2 state satisfies.
// It mirrors the teacher's demodulator_state_s / descriptor split
// (src/demod_state.go, src/multi_modem.go) collapsed into one Go
// interface per spec.md §3's demodulator descriptor entity.
type Demodulator interface {
	// Name identifies the demodulator in diagnostics and output records.
	Name() string
	// WantsIntSamples reports whether Process expects raw int16 samples
	// (true) or normalized floats (false).
	WantsIntSamples() bool
	// SampleRate is the fixed rate, in Hz, this demodulator expects.
	SampleRate() int
	// Overlap is the number of trailing samples from the previous block
	// this demodulator's matched filter needs repeated at the start of
	// the next block.
	Overlap() int
	// Process consumes one sample block's int16 or float data (per
	// WantsIntSamples) and emits zero or more records internally.
	Process(block sample.Block)
	// Deinit flushes any pending state and emits final statistics. It is
	// called exactly once, in reverse configuration order, on shutdown.
	Deinit()
}

// Driver owns the sample-buffer broadcast loop described in spec.md §2:
// it converts each incoming block to floats at most once, and hands the
// identical block to every enabled demodulator in configuration order.
type Driver struct {
	demods     []Demodulator
	sampleRate int
	overlap    int
	tail       []int16
}

// New validates that every demod shares the same sample rate (spec.md
// §3's demodulator-descriptor invariant) and computes the overlap window
// as the maximum across all enabled demods.
func New(demods []Demodulator) (*Driver, error) {
	if len(demods) == 0 {
		return &Driver{}, nil
	}
	rate := demods[0].SampleRate()
	overlap := 0
	for _, d := range demods {
		if d.SampleRate() != rate {
			return nil, fmt.Errorf("pipeline: sample rate mismatch: %s wants %d Hz, expected %d Hz", d.Name(), d.SampleRate(), rate)
		}
		if d.Overlap() > overlap {
			overlap = d.Overlap()
		}
	}
	return &Driver{demods: demods, sampleRate: rate, overlap: overlap}, nil
}

// SampleRate returns the pipeline's single configured sample rate.
func (d *Driver) SampleRate() int { return d.sampleRate }

// Overlap returns the number of samples retained between blocks.
func (d *Driver) Overlap() int { return d.overlap }

// anyWantsFloat reports whether at least one active demod needs the
// normalized float conversion, so the driver can skip it entirely when
// every demod accepts raw integer samples (spec.md §2).
func (d *Driver) anyWantsFloat() bool {
	for _, dm := range d.demods {
		if !dm.WantsIntSamples() {
			return true
		}
	}
	return false
}

// ProcessChunk feeds one chunk of freshly read int16 samples through the
// pipeline. It prepends the retained overlap tail from the previous
// call, builds the float conversion once if any demod needs it, and
// dispatches the combined block to every demod in order. After
// dispatch it keeps the trailing `overlap` samples of this chunk (not
// of the combined block) for next time.
func (d *Driver) ProcessChunk(chunk []int16) {
	var combined []int16
	if len(d.tail) > 0 {
		combined = make([]int16, 0, len(d.tail)+len(chunk))
		combined = append(combined, d.tail...)
		combined = append(combined, chunk...)
	} else {
		combined = chunk
	}

	block := sample.Block{Int16: combined}
	if d.anyWantsFloat() {
		block.Fill()
	}

	for _, dm := range d.demods {
		dm.Process(block)
	}

	if d.overlap > 0 {
		if len(chunk) >= d.overlap {
			d.tail = append(d.tail[:0], chunk[len(chunk)-d.overlap:]...)
		} else {
			// Chunk shorter than the overlap window: keep what we have of
			// the previous tail plus the whole chunk, per spec.md §8 law
			// 10 (overlap preservation must hold for any block size >=
			// overlap; shorter chunks degrade gracefully rather than
			// losing history).
			keep := d.overlap - len(chunk)
			if keep > len(d.tail) {
				keep = len(d.tail)
			}
			merged := append(append([]int16{}, d.tail[len(d.tail)-keep:]...), chunk...)
			d.tail = merged
		}
	}
}

// Shutdown calls Deinit on every demod in reverse configuration order,
// per spec.md §5's cancellation contract.
func (d *Driver) Shutdown() {
	for i := len(d.demods) - 1; i >= 0; i-- {
		d.demods[i].Deinit()
	}
}
