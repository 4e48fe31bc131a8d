// Package config loads batch configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file (rrthin.toml)
//  3. a .env file in the working directory, then RRTHIN_* environment variables
//  4. command-line flags, applied by the CLI after [Load]
//
// The merged result is validated before any job is planned.
package config

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/rrthin/pkg/batch"
	"github.com/matzehuels/rrthin/pkg/cache"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/pipeline"
)

// DefaultEdgeRates are the removal rates of the published sweep.
var DefaultEdgeRates = []float64{0.05, 0.10, 0.30, 0.50, 0.65, 0.80, 0.90, 0.95, 0.98}

// DefaultOutputDir is where thinned graphs go when nothing else is set.
const DefaultOutputDir = "rr_graphs"

// Config is the full batch configuration.
type Config struct {
	InputDir     string    `toml:"input_dir" validate:"required"`
	InputPattern string    `toml:"input_pattern" validate:"required,contains={circuit}"`
	OutputDir    string    `toml:"output_dir" validate:"required"`
	Workers      int       `toml:"workers" validate:"gte=1"`
	Seed         *uint64   `toml:"seed"`
	Circuits     []string  `toml:"circuits" validate:"dive,required"`
	EdgeRates    []float64 `toml:"edge_rates" validate:"dive,gte=0,lte=1"`

	Mux   MuxConfig   `toml:"mux"`
	Cache CacheConfig `toml:"cache"`
}

// MuxConfig lists the (edge rate, mux rate) pairs of MUX jobs.
type MuxConfig struct {
	EdgeRates []float64 `toml:"edge_rates" validate:"dive,gte=0,lte=1"`
	MuxRates  []float64 `toml:"mux_rates" validate:"dive,gte=0,lte=1"`
}

// CacheConfig selects the graph cache backend.
type CacheConfig struct {
	Backend  string   `toml:"backend" validate:"oneof=file redis none"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url" validate:"required_if=Backend redis"`
	TTL      Duration `toml:"ttl"`
	Prefix   string   `toml:"prefix" validate:"omitempty,printascii"`
}

// Duration is a time.Duration written as a string ("168h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		InputPattern: batch.DefaultInputPattern,
		OutputDir:    DefaultOutputDir,
		Workers:      runtime.NumCPU(),
		EdgeRates:    append([]float64(nil), DefaultEdgeRates...),
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     Duration{pipeline.DefaultGraphTTL},
		},
	}
}

// Load reads path (optional), applies environment overrides and validates
// the result. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the file layer only: defaults overlaid with path.
// Keys the file does not define keep their defaults; an explicitly empty
// edge_rates disables edge-only jobs.
func Parse(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeMissingInput, err, "config file %s", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.fillDefaults(meta)
	return cfg, nil
}

func (c *Config) fillDefaults(meta toml.MetaData) {
	d := Default()
	if !meta.IsDefined("input_pattern") {
		c.InputPattern = d.InputPattern
	}
	if !meta.IsDefined("output_dir") {
		c.OutputDir = d.OutputDir
	}
	if !meta.IsDefined("workers") {
		c.Workers = d.Workers
	}
	if !meta.IsDefined("edge_rates") {
		c.EdgeRates = d.EdgeRates
	}
	if !meta.IsDefined("cache", "backend") {
		c.Cache.Backend = d.Cache.Backend
	}
	if !meta.IsDefined("cache", "ttl") {
		c.Cache.TTL = d.Cache.TTL
	}
}

// =============================================================================
// Derived Values
// =============================================================================

// Matrix returns the rate configurations to plan.
func (c *Config) Matrix() batch.Matrix {
	return batch.Matrix{
		EdgeRates:    c.EdgeRates,
		MuxEdgeRates: c.Mux.EdgeRates,
		MuxRates:     c.Mux.MuxRates,
	}
}

// CacheOptions returns the options for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:  c.Cache.Backend,
		Dir:      c.Cache.Dir,
		RedisURL: c.Cache.RedisURL,
		Prefix:   c.Cache.Prefix,
	}
}

// ResolveSeed returns the configured seed, choosing and recording a random
// one if none is set. The second result reports whether it was chosen here.
func (c *Config) ResolveSeed() (uint64, bool) {
	if c.Seed != nil {
		return *c.Seed, false
	}
	seed := rand.Uint64()
	c.Seed = &seed
	return seed, true
}

// ResolveCircuits returns the circuits to thin: the configured names, or every
// circuit found under InputDir.
func (c *Config) ResolveCircuits() ([]batch.Circuit, error) {
	if len(c.Circuits) > 0 {
		return batch.ResolveCircuits(c.InputDir, c.InputPattern, c.Circuits)
	}
	return batch.DiscoverCircuits(c.InputDir, c.InputPattern)
}
