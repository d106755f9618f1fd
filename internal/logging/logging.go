// Package logging is the single diagnostic-output facade threaded
// through every demodulator, mirroring the teacher's verbprintf/
// text_color_set split (src/log.go, src/textcolor.go) but backed by
// github.com/charmbracelet/log. Decoded records never travel through
// here — see internal/record — keeping the diagnostic channel and the
// record channel separate, per spec.md §9's Design Notes.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger wraps a charmbracelet/log.Logger with the demodulator/channel
// fields the pipeline driver and every demod attach.
type Logger struct {
	*charmlog.Logger
}

var base = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	Level:           charmlog.WarnLevel,
})

// Default returns the process-wide diagnostic logger.
func Default() *Logger {
	return &Logger{base}
}

// SetOutput redirects diagnostics, e.g. to a log file instead of stderr.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetVerbose maps the CLI's numeric verbosity level onto charmbracelet/
// log levels: 0 = warnings and errors only, 1 = info (frame drops), 2+ =
// debug (bit-level corrections, sync-state transitions).
func SetVerbose(level int) {
	switch {
	case level <= 0:
		base.SetLevel(charmlog.WarnLevel)
	case level == 1:
		base.SetLevel(charmlog.InfoLevel)
	default:
		base.SetLevel(charmlog.DebugLevel)
	}
}

// For returns a logger scoped to one demodulator instance.
func For(demod string, channel int) *Logger {
	return &Logger{base.With("demod", demod, "channel", channel)}
}
