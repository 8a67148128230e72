// main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/stephenlclarke/fixcodec/decoder"
	"github.com/stephenlclarke/fixcodec/fix"
	"github.com/stephenlclarke/fixcodec/internal/config"
	"github.com/stephenlclarke/fixcodec/internal/logging"
	"golang.org/x/term"
)

// Version, Branch, GitUrl, Sha are injected at build time via -ldflags
var (
	Version = "0.0.0"
	Branch  = "main"
	GitUrl  = "git@github.com:stephenlclarke/fixcodec.git"
	Sha     = "0000000"
)

var isTerminal = term.IsTerminal // allow override in tests

// optionalFlag takes an optional value: bare -tag lists everything,
// explicit -tag= shows usage, and -tag=NN selects one entry.
type optionalFlag struct {
	value string
	isSet bool
}

func (o *optionalFlag) String() string     { return o.value }
func (o *optionalFlag) Set(s string) error { o.value, o.isSet = s, true; return nil }
func (o *optionalFlag) IsBoolFlag() bool   { return true }

// listAll reports a bare flag.
func (o optionalFlag) listAll() bool { return o.value == "true" }

type colourFlag struct {
	value string
	isSet bool
}

func (c *colourFlag) String() string {
	if c.value == "" {
		return config.ColourAuto
	}
	return c.value
}

func (c *colourFlag) Set(s string) error {
	if s == "true" { // bare -colour
		s = config.ColourYes
	}
	v, err := config.ParseColour(s)
	if err != nil {
		return fmt.Errorf("invalid value for -colour: %q", s)
	}
	c.value, c.isSet = v, true
	return nil
}

func (c *colourFlag) IsBoolFlag() bool {
	return true
}

// CLIOptions holds all parsed flag values.
type CLIOptions struct {
	ConfigPath     string
	XMLPath        string
	FixVersion     string
	Component      optionalFlag
	Verbose        bool
	IncludeHeader  bool
	IncludeTrailer bool
	ColumnOutput   bool
	Message        optionalFlag
	Tag            optionalFlag
	Info           bool
	Validate       bool
	Obfuscate      bool
	Colour         colourFlag
	LogLevel       string
	Files          []string

	set map[string]bool // flags given explicitly
}

// parseFlagsArgs parses command-line arguments using a fresh FlagSet.
func parseFlagsArgs(args []string, errOut io.Writer) (CLIOptions, error) {
	var opts CLIOptions

	fs := flag.NewFlagSet("fixdecoder", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a TOML config file (default $"+config.EnvConfig+" or "+config.DefaultFile+")")
	fs.StringVar(&opts.XMLPath, "xml", "", "Path to alternative FIX XML file")
	fs.StringVar(&opts.FixVersion, "fix", fix.DefaultFixVersion, "FIX version to use ("+fix.SupportedFixVersions()+")")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Show full message structure with enums")
	fs.BoolVar(&opts.IncludeHeader, "header", false, "Include Header block")
	fs.BoolVar(&opts.IncludeTrailer, "trailer", false, "Include Trailer block")
	fs.BoolVar(&opts.ColumnOutput, "column", false, "Display lists in columns")
	fs.BoolVar(&opts.Info, "info", false, "Show XML schema summary (fields, components, messages, groups, data pairs)")
	fs.BoolVar(&opts.Validate, "validate", false, "Validate FIX messages during decoding")
	fs.BoolVar(&opts.Obfuscate, "obfuscate", false, "Replace sensitive values (accounts, comp IDs, parties) with stable aliases")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Diagnostic log level (trace|debug|info|warn|error|off)")
	fs.Var(&opts.Message, "message", "Message name or MsgType (omit to list all messages)")
	fs.Var(&opts.Component, "component", "Component to display (omit to list all components)")
	fs.Var(&opts.Tag, "tag", "Tag number to display details for (omit to list all tags)")
	fs.Var(&opts.Colour, "colour", "Coloured output (auto|yes|no). Default: auto-detect based on stdout")

	fs.Usage = func() {
		PrintUsage(errOut)
		fmt.Fprintln(errOut, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.Files = extractFileArgsOrStdin(fs.Args())

	return opts, nil
}

// PrintUsage prints the program usage.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "fixdecoder %s (branch:%s, commit:%s)\n\n", Version, Branch, Sha)
	fmt.Fprintf(w, "  git clone %s\n\n", GitUrl)
	fmt.Fprintln(w, "Usage: fixdecoder [[-fix=44] | [-xml FIX44.xml]] [-message[=MSG] [-verbose] [-column] [-header] [-trailer]]")
	fmt.Fprintln(w, "       fixdecoder [[-fix=44] | [-xml FIX44.xml]] [-tag[=TAG] [-verbose] [-column]]")
	fmt.Fprintln(w, "       fixdecoder [[-fix=44] | [-xml FIX44.xml]] [-component=[NAME] [-verbose]]")
	fmt.Fprintln(w, "       fixdecoder [[-fix=44] | [-xml FIX44.xml]] [-info]")
	fmt.Fprintln(w, "       fixdecoder [-config fixdecoder.toml] [-validate] [-obfuscate] [-colour=yes|no] [file1.log file2.log ...]")
}

// extractFileArgsOrStdin returns the positional arguments, or {"-"}
// which decoder.PrettifyFiles reads as stdin.
func extractFileArgsOrStdin(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

// applyFlags overrides the file config with every flag given explicitly.
func applyFlags(cfg *config.Config, opts CLIOptions) {
	if opts.set["fix"] {
		cfg.FixVersion = opts.FixVersion
	}
	if opts.set["validate"] {
		cfg.Validate = opts.Validate
	}
	if opts.set["obfuscate"] {
		cfg.Obfuscate = opts.Obfuscate
	}
	if opts.Colour.isSet {
		cfg.Colour = opts.Colour.value
	}
	if opts.set["log-level"] {
		cfg.LogLevel = opts.LogLevel
	}
}

// loadDictionaryFromOpts picks between an explicit XML file or an embedded dictionary.
func loadDictionaryFromOpts(opts CLIOptions, cfg config.Config) (*decoder.Dictionary, error) {
	if opts.XMLPath == "" {
		d, err := decoder.EmbeddedDictionary(cfg.FixVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded FIX XML: %w", err)
		}
		return d, nil
	}

	f, err := os.Open(opts.XMLPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := decoder.LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.XMLPath, err)
	}
	return d, nil
}

func applyColour(mode string) {
	switch mode {
	case config.ColourNo:
		decoder.DisableColours()
	case config.ColourAuto:
		if !isTerminal(int(os.Stdout.Fd())) {
			decoder.DisableColours()
		}
	}
}

// Process is the entry point: parses flags, loads config and a dictionary, runs handlers, and returns an exit code.
func Process(args []string, out, errOut io.Writer) int {
	opts, err := parseFlagsArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(config.Path(opts.ConfigPath), opts.ConfigPath != "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	applyFlags(&cfg, opts)

	logger := logging.Configure(logging.ProfileRuntime, cfg.LogLevel)
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logger = logger.Level(lvl)
	}
	logger.Debug().
		Str("fix", cfg.FixVersion).
		Bool("validate", cfg.Validate).
		Bool("obfuscate", cfg.Obfuscate).
		Int("max_depth", cfg.Limits.MaxDepth).
		Int("max_group_instances", cfg.Limits.MaxGroupInstances).
		Msg("configuration")

	decoder.SetLogger(logger)
	decoder.SetLimits(cfg.Limits)
	decoder.SetValidation(cfg.Validate)

	dict, err := loadDictionaryFromOpts(opts, cfg)
	if err != nil {
		logger.Error().Err(err).Str("xml", opts.XMLPath).Msg("cannot load dictionary")
		fmt.Fprintln(errOut, err)
		return 1
	}
	if opts.XMLPath != "" {
		decoder.SetDictionary(dict)
		defer decoder.SetDictionary(nil)
	}

	if runHandlers(out, opts, dict) {
		return 0
	}

	applyColour(cfg.Colour)

	obfuscator := fix.CreateObfuscator(fix.SensitiveTagNames, cfg.Obfuscate)
	return decoder.PrettifyFiles(opts.Files, out, errOut, obfuscator)
}

func main() {
	os.Exit(Process(os.Args[1:], os.Stdout, os.Stderr))
}
