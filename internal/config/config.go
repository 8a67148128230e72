// Package config loads fixdecoder.toml. Keys left out of the file keep
// their defaults, and command line flags override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/fix"
)

// EnvConfig names the config file when -config is not given.
const EnvConfig = "FIXCODEC_CONFIG"

const DefaultFile = "fixdecoder.toml"

// Colour modes.
const (
	ColourAuto = "auto"
	ColourYes  = "yes"
	ColourNo   = "no"
)

type Config struct {
	FixVersion string
	Validate   bool
	Colour     string
	Obfuscate  bool
	LogLevel   string
	Limits     codec.Limits
}

func Default() Config {
	return Config{
		FixVersion: fix.DefaultFixVersion,
		Colour:     ColourAuto,
		LogLevel:   "warn",
		Limits:     codec.DefaultLimits,
	}
}

type fileConfig struct {
	FixVersion        string `toml:"fix_version"`
	Validate          bool   `toml:"validate"`
	Colour            string `toml:"colour"`
	Obfuscate         bool   `toml:"obfuscate"`
	LogLevel          string `toml:"log_level"`
	MaxDepth          int    `toml:"max_depth"`
	MaxGroupInstances int    `toml:"max_group_instances"`
}

// Path picks the file to load: explicit, then $FIXCODEC_CONFIG, then
// fixdecoder.toml in the working directory.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return DefaultFile
}

// Load reads path over the defaults. A missing file is not an error
// unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("fix_version") {
		v := strings.TrimSpace(raw.FixVersion)
		if !supported(v) {
			return Config{}, fmt.Errorf("fix_version %q: expected one of %s", v, fix.SupportedFixVersions())
		}
		cfg.FixVersion = v
	}

	if meta.IsDefined("validate") {
		cfg.Validate = raw.Validate
	}

	if meta.IsDefined("colour") {
		c, err := ParseColour(raw.Colour)
		if err != nil {
			return Config{}, err
		}
		cfg.Colour = c
	}

	if meta.IsDefined("obfuscate") {
		cfg.Obfuscate = raw.Obfuscate
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("max_depth") {
		if raw.MaxDepth < 1 {
			return Config{}, fmt.Errorf("max_depth %d: must be positive", raw.MaxDepth)
		}
		cfg.Limits.MaxDepth = raw.MaxDepth
	}

	if meta.IsDefined("max_group_instances") {
		if raw.MaxGroupInstances < 1 {
			return Config{}, fmt.Errorf("max_group_instances %d: must be positive", raw.MaxGroupInstances)
		}
		cfg.Limits.MaxGroupInstances = raw.MaxGroupInstances
	}

	return cfg, nil
}

// ParseColour accepts auto, yes/true and no/false.
func ParseColour(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ColourAuto:
		return ColourAuto, nil
	case ColourYes, "true":
		return ColourYes, nil
	case ColourNo, "false":
		return ColourNo, nil
	}
	return "", fmt.Errorf("colour %q: expected auto, yes or no", s)
}

func supported(version string) bool {
	for _, v := range strings.Split(fix.SupportedFixVersions(), ",") {
		if v == version {
			return true
		}
	}
	return false
}
