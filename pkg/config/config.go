package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory.
const FileName = "bonds.toml"

// EnvPrefix prefixes environment overrides, e.g. BONDS_CUTOFF=5.5.
const EnvPrefix = "BONDS_"

// Config holds all configuration for the application
type Config struct {
	Crystal   string  `koanf:"crystal"`
	Rules     string  `koanf:"rules"`
	Radii     string  `koanf:"radii"`
	Method    string  `koanf:"method" validate:"oneof=rules voronoi"`
	Periodic  bool    `koanf:"periodic"`
	Cutoff    float64 `koanf:"cutoff" validate:"gt=0"`
	Sigma     float64 `koanf:"sigma" validate:"gte=0"`
	MinTol    float64 `koanf:"min_tol" validate:"gte=0"`
	Workers   int     `koanf:"workers" validate:"gte=0"`
	Strict    bool    `koanf:"strict"`
	Port      int     `koanf:"port" validate:"gte=0,lte=65535"`
	Watch     bool    `koanf:"watch"`
	Verbosity string  `koanf:"verbosity"`
	Verbose   int     `koanf:"verbose"`
	JSONLogs  bool    `koanf:"json_logs"`
}

// Defaults returns the built-in values, the lowest layer of Load.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"crystal":   "",
		"rules":     "",
		"radii":     "",
		"method":    "rules",
		"periodic":  true,
		"cutoff":    6.0,
		"sigma":     3.0,
		"min_tol":   0.25,
		"workers":   0,
		"strict":    false,
		"port":      8080,
		"watch":     false,
		"verbosity": "",
		"verbose":   0,
		"json_logs": false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(FileName, f)
}

// LoadFile is Load with an explicit config file path. A missing file is
// not an error.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(path), toml.Parser())

	// BONDS_MIN_TOL -> min_tol
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
