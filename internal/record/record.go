// Package record renders decoded frames to the output sink, per
// spec.md §6. It is the one channel decoded text ever flows through;
// diagnostics go through internal/logging instead, per the Design Notes
// separation in spec.md §9.
package record

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// timestampPattern renders the YYYY-MM-DDTHH:MM:SS part of the literal
// record format in spec.md §6; timestamp appends the .uuuuuu microseconds.
const timestampPattern = "%Y-%m-%dT%H:%M:%S"

// Record is one decoded frame, shaped the same way regardless of output
// format: a demodulator tag, a timestamp, an ordered list of
// demod-specific metadata fields, and a payload string.
type Record struct {
	Demod    string
	Time     time.Time
	Fields   []string
	Payload  string
	Partial  bool // true for POCSAG "show partial" placeholder records
}

// Format selects the output rendering.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Sink serializes Records to an underlying writer. Writes are coalesced
// by a single flush after each record unless NoFlush is set, matching
// spec.md §5's shared-resource policy for the output stream.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	format  Format
	NoFlush bool
}

// Flusher is implemented by writers (e.g. bufio.Writer) that need an
// explicit flush call.
type Flusher interface {
	Flush() error
}

// NewSink creates a Sink writing to w in the given format.
func NewSink(w io.Writer, format Format) *Sink {
	return &Sink{w: w, format: format}
}

func timestamp(t time.Time) string {
	base, err := strftime.Format(timestampPattern, t)
	if err != nil {
		base = t.Format("2006-01-02T15:04:05")
	}
	return fmt.Sprintf("%s.%06d", base, t.Nanosecond()/1000)
}

// Emit writes one record. Text format renders
// "<DEMOD>|<timestamp>|<field>|...|<payload>"; JSON format renders the
// same data as a structured object. The clock is read exactly once per
// record, by the caller constructing Record.Time, per spec.md §5.
func (s *Sink) Emit(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var line string
	switch s.format {
	case FormatJSON:
		obj := struct {
			Demod   string   `json:"demod"`
			Time    string   `json:"time"`
			Fields  []string `json:"fields"`
			Payload string   `json:"payload"`
			Partial bool     `json:"partial,omitempty"`
		}{
			Demod:   r.Demod,
			Time:    timestamp(r.Time),
			Fields:  r.Fields,
			Payload: r.Payload,
			Partial: r.Partial,
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		line = string(b)
	default:
		parts := append([]string{r.Demod, timestamp(r.Time)}, r.Fields...)
		parts = append(parts, r.Payload)
		line = strings.Join(parts, "|")
	}

	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return err
	}
	if !s.NoFlush {
		if f, ok := s.w.(Flusher); ok {
			return f.Flush()
		}
	}
	return nil
}
