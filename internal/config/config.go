// Package config layers a YAML config file under command-line flags,
// mirroring the teacher's own config-file-then-flag-override split
// (src/config.go's config_init reading direwolf.conf, overridden by
// cmd/direwolf/main.go's getopt parsing) but scoped to what this
// spec's pipeline actually configures and built on gopkg.in/yaml.v3
// and github.com/spf13/pflag rather than hand-rolled line parsing.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every knob spec.md's pipeline exposes: which
// demodulators run, the shared sample rate, and each protocol's own
// tunables.
type Config struct {
	SampleRate int      `yaml:"sample_rate"`
	Demods     []string `yaml:"demods"`

	POCSAG POCSAGConfig `yaml:"pocsag"`
	FLEX   FLEXConfig   `yaml:"flex"`
	Morse  MorseConfig  `yaml:"morse"`
	Selcall SelcallConfig `yaml:"selcall"`

	OutputFormat string `yaml:"output_format"` // "text" or "json"
	Verbose      int    `yaml:"verbose"`
}

// POCSAGConfig mirrors internal/pocsag.Decoder's tunables.
type POCSAGConfig struct {
	Baud        int    `yaml:"baud"`    // 512, 1200, or 2400
	ECLevel     int    `yaml:"ec_level"` // 0, 1, or 2
	Charset     string `yaml:"charset"`  // "us" or a named table in internal/pocsag.Charset
	Mode        string `yaml:"mode"`     // "auto", "numeric", "alpha", "skyper", "standard"
	ShowPartial bool   `yaml:"show_partial"`
	PruneEmpty  bool   `yaml:"prune_empty"`
}

// FLEXConfig mirrors internal/flex.Decoder's tunables.
type FLEXConfig struct {
	GroupVerbose bool `yaml:"group_verbose"`
}

// MorseConfig mirrors internal/morse.Decoder's tunables.
type MorseConfig struct {
	DitLengthMS int `yaml:"dit_length_ms"`
	GapLengthMS int `yaml:"gap_length_ms"`
}

// SelcallConfig selects which five-tone selective-call variants run.
type SelcallConfig struct {
	Variants   []string `yaml:"variants"` // "ccir", "eea", "eia", "zvei1", "zvei3"
	MinRepeats int      `yaml:"min_repeats"`
}

// Default returns the configuration spec.md's defaults describe: all
// demodulators enabled at 22050 Hz, POCSAG full error correction, and
// text output.
func Default() *Config {
	return &Config{
		SampleRate: 22050,
		Demods:     []string{"pocsag", "flex", "clip", "fms", "cir", "selcall", "hdlc", "morse"},
		POCSAG: POCSAGConfig{
			Baud:    1200,
			ECLevel: 2,
			Charset: "us",
			Mode:    "auto",
		},
		Morse: MorseConfig{
			DitLengthMS: 50,
			GapLengthMS: 50,
		},
		Selcall: SelcallConfig{
			Variants:   []string{"ccir", "eea", "eia", "zvei1", "zvei3"},
			MinRepeats: 1,
		},
		OutputFormat: "text",
	}
}

// Load reads a YAML config file over top of Default's values. An empty
// path is not an error; it returns the defaults unchanged, matching the
// teacher's "config file is optional, defaults apply otherwise" stance
// on everything but its own mandatory direwolf.conf.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags adds one pflag per Config field, seeded with cfg's
// current values (typically the result of Load), so the flag set's
// defaults already reflect the config file.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "audio sample rate in Hz")
	fs.StringSliceVar(&cfg.Demods, "demods", cfg.Demods, "demodulators to enable")

	fs.IntVar(&cfg.POCSAG.Baud, "pocsag-baud", cfg.POCSAG.Baud, "POCSAG baud rate (512, 1200, or 2400)")
	fs.IntVar(&cfg.POCSAG.ECLevel, "pocsag-ec-level", cfg.POCSAG.ECLevel, "POCSAG BCH error-correction level (0-2)")
	fs.StringVar(&cfg.POCSAG.Charset, "pocsag-charset", cfg.POCSAG.Charset, "POCSAG alphanumeric charset")
	fs.StringVar(&cfg.POCSAG.Mode, "pocsag-mode", cfg.POCSAG.Mode, "POCSAG rendering mode (auto, numeric, alpha, skyper, standard)")
	fs.BoolVar(&cfg.POCSAG.ShowPartial, "pocsag-show-partial", cfg.POCSAG.ShowPartial, "emit partial POCSAG pages on lost sync")
	fs.BoolVar(&cfg.POCSAG.PruneEmpty, "pocsag-prune-empty", cfg.POCSAG.PruneEmpty, "drop empty POCSAG address-only pages")

	fs.BoolVar(&cfg.FLEX.GroupVerbose, "flex-group-verbose", cfg.FLEX.GroupVerbose, "log every FLEX group-message fragment, not just completed ones")

	fs.IntVar(&cfg.Morse.DitLengthMS, "morse-dit-ms", cfg.Morse.DitLengthMS, "initial Morse dit length in milliseconds")
	fs.IntVar(&cfg.Morse.GapLengthMS, "morse-gap-ms", cfg.Morse.GapLengthMS, "initial Morse gap length in milliseconds")

	fs.StringSliceVar(&cfg.Selcall.Variants, "selcall-variants", cfg.Selcall.Variants, "selective-call variants to decode")
	fs.IntVar(&cfg.Selcall.MinRepeats, "selcall-min-repeats", cfg.Selcall.MinRepeats, "consecutive repeats required before reporting a selective-call digit")

	fs.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "record output format (text or json)")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "increase diagnostic verbosity")
}
