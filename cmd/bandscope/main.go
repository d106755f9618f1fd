// Command bandscope reads a mono 16-bit PCM sample stream and emits
// decoded text frames for whichever digital radio protocols the
// configuration enables, per spec.md §1-§2. It is the one piece of I/O
// wiring this spec leaves to "external collaborators, referenced only
// by interface": reading raw samples from a file or stdin, and writing
// the decoded record stream to stdout, are not part of the core
// pipeline spec but have to live somewhere for the program to run.
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/n0call/bandscope/internal/config"
	"github.com/n0call/bandscope/internal/logging"
	"github.com/n0call/bandscope/internal/pipeline"
	"github.com/n0call/bandscope/internal/record"
)

const chunkSamples = 4096

// stdinForTest/stdoutForTest let tests substitute in-memory buffers for
// the process's standard streams without touching os.Stdin/os.Stdout.
var (
	stdinForTest  io.Reader = os.Stdin
	stdoutForTest io.Writer = os.Stdout
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bandscope: "+err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("bandscope", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	inputPath := fs.String("input", "-", "raw 16-bit LE PCM input file, or - for stdin")
	// The config-file path has to be known before the rest of the flags
	// (which seed their defaults from the loaded config) can even be
	// registered, so this first pass tolerates flags it doesn't know yet.
	fs.ParseErrorsWhitelist = flag.ParseErrorsWhitelist{UnknownFlags: true}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	config.RegisterFlags(fs, cfg)
	fs.ParseErrorsWhitelist = flag.ParseErrorsWhitelist{}
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.SetVerbose(cfg.Verbose)

	format := record.FormatText
	if cfg.OutputFormat == "json" {
		format = record.FormatJSON
	}
	out := bufio.NewWriter(stdoutForTest)
	defer out.Flush()
	sink := record.NewSink(out, format)

	demods, err := buildDemods(cfg, sink)
	if err != nil {
		return err
	}
	driver, err := pipeline.New(demods)
	if err != nil {
		return err
	}

	in, err := openInput(*inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := feed(driver, in); err != nil {
		return err
	}
	driver.Shutdown()
	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" || path == "" {
		return io.NopCloser(stdinForTest), nil
	}
	return os.Open(path)
}

// feed reads chunkSamples-sized chunks of little-endian int16 samples
// and hands each to the driver, matching spec.md §2's "process samples
// in arrival order" contract.
func feed(driver *pipeline.Driver, r io.Reader) error {
	br := bufio.NewReader(r)
	buf := make([]byte, chunkSamples*2)
	chunk := make([]int16, chunkSamples)
	for {
		n, err := io.ReadFull(br, buf)
		if n > 0 {
			samples := n / 2
			for i := 0; i < samples; i++ {
				chunk[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
			driver.ProcessChunk(chunk[:samples])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}

// buildDemods constructs one pipeline.Demodulator per name in
// cfg.Demods, per spec.md §3's demodulator descriptor list.
func buildDemods(cfg *config.Config, sink *record.Sink) ([]pipeline.Demodulator, error) {
	var demods []pipeline.Demodulator
	for _, name := range cfg.Demods {
		switch name {
		case "pocsag":
			demods = append(demods, newPocsagDemod(cfg.SampleRate, cfg.POCSAG, sink))
		case "flex":
			demods = append(demods, newFlexDemod(cfg.SampleRate, cfg.FLEX, sink))
		case "clip":
			demods = append(demods, newClipDemod(cfg.SampleRate, sink))
		case "fms":
			demods = append(demods, newFmsDemod(cfg.SampleRate, sink))
		case "cir":
			demods = append(demods, newCirDemod(cfg.SampleRate, sink))
		case "hdlc":
			demods = append(demods, newHdlcDemod(cfg.SampleRate, sink))
		case "morse":
			demods = append(demods, newMorseDemod(cfg.SampleRate, cfg.Morse, sink))
		case "selcall":
			for _, vname := range cfg.Selcall.Variants {
				variant, ok := variantByName(vname)
				if !ok {
					return nil, fmt.Errorf("unknown selcall variant %q", vname)
				}
				demods = append(demods, newSelcallDemod(cfg.SampleRate, variant, cfg.Selcall.MinRepeats, sink))
			}
		default:
			return nil, fmt.Errorf("unknown demodulator %q", name)
		}
	}
	return demods, nil
}
