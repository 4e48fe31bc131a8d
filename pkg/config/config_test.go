package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

const sample = `
input_dir     = "/runs/titan"
input_pattern = "{circuit}.blif/common/rr_graph.xml"
output_dir    = "thinned"
workers       = 8
seed          = 42
circuits      = ["gsm_switch_stratixiv_arch_timing", "dart"]
edge_rates    = [0.05, 0.10, 0.30]

[mux]
edge_rates = [0.50]
mux_rates  = [0.05, 0.10]

[cache]
backend   = "redis"
redis_url = "redis://localhost:6379/0"
ttl       = "24h"
prefix    = "titan:"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rrthin.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.InputDir != "/runs/titan" || cfg.OutputDir != "thinned" || cfg.Workers != 8 {
		t.Errorf("scalars = %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("seed = %v", cfg.Seed)
	}
	if !reflect.DeepEqual(cfg.EdgeRates, []float64{0.05, 0.10, 0.30}) {
		t.Errorf("edge_rates = %v", cfg.EdgeRates)
	}
	m := cfg.Matrix()
	if !reflect.DeepEqual(m.MuxEdgeRates, []float64{0.5}) || !reflect.DeepEqual(m.MuxRates, []float64{0.05, 0.10}) {
		t.Errorf("matrix = %+v", m)
	}
	if cfg.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	co := cfg.CacheOptions()
	if co.Backend != "redis" || co.RedisURL != "redis://localhost:6379/0" || co.Prefix != "titan:" {
		t.Errorf("cache options = %+v", co)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse(writeConfig(t, `input_dir = "/runs"`))
	if err != nil {
		t.Fatal(err)
	}
	d := Default()
	if cfg.InputPattern != d.InputPattern || cfg.OutputDir != DefaultOutputDir || cfg.Workers != d.Workers {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.EdgeRates, DefaultEdgeRates) {
		t.Errorf("edge_rates = %v", cfg.EdgeRates)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.TTL.Duration != 168*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Seed != nil {
		t.Errorf("seed should be unset, got %d", *cfg.Seed)
	}
}

func TestParseEmptyEdgeRates(t *testing.T) {
	cfg, err := Parse(writeConfig(t, `
input_dir  = "/runs"
edge_rates = []
[mux]
edge_rates = [0.5]
mux_rates  = [0.1]
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.EdgeRates) != 0 {
		t.Errorf("edge_rates = %v, want none", cfg.EdgeRates)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("mux-only config should validate: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.toml"))
	if !errs.Is(err, errs.ErrCodeMissingInput) {
		t.Errorf("missing file: %v", err)
	}

	_, err = Parse(writeConfig(t, `input_dir = `))
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("syntax error: %v", err)
	}

	_, err = Parse(writeConfig(t, "input_dir = \"/runs\"\nrate = 0.5\n"))
	if !errs.Is(err, errs.ErrCodeInvalidConfig) || !strings.Contains(err.Error(), "rate") {
		t.Errorf("unknown key: %v", err)
	}

	_, err = Parse(writeConfig(t, "[cache]\nttl = \"soon\"\n"))
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("bad duration: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.InputDir = "/runs"
		return c
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no input dir", func(c *Config) { c.InputDir = "" }, "input_dir"},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"pattern without placeholder", func(c *Config) { c.InputPattern = "rr_graph.xml" }, "input_pattern"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"rate above one", func(c *Config) { c.EdgeRates = []float64{0.5, 1.5} }, "edge_rates[1]"},
		{"negative mux rate", func(c *Config) {
			c.Mux = MuxConfig{EdgeRates: []float64{0.5}, MuxRates: []float64{-0.1}}
		}, "mux.mux_rates[0]"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis_url"},
		{"control character in prefix", func(c *Config) { c.Cache.Prefix = "titan\x01" }, "cache.prefix"},
		{"mux half set", func(c *Config) { c.Mux.MuxRates = []float64{0.1} }, "set together"},
		{"no rates", func(c *Config) { c.EdgeRates = nil }, "no rates"},
		{"bad circuit", func(c *Config) { c.Circuits = []string{"a/b"} }, "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if errs.GetCode(err) != errs.ErrCodeInvalidConfig && errs.GetCode(err) != errs.ErrCodeInvalidCircuit {
				t.Errorf("code = %s", errs.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvInputDir, "/env/runs")
	t.Setenv(EnvOutputDir, "/env/out")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvSeed, "7")
	t.Setenv(EnvCacheBackend, "none")
	t.Setenv(EnvRedisURL, "")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputDir != "/env/runs" || cfg.OutputDir != "/env/out" || cfg.Workers != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if *cfg.Seed != 7 || cfg.Cache.Backend != "none" {
		t.Errorf("seed %d backend %s", *cfg.Seed, cfg.Cache.Backend)
	}
	if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("empty variable should not override, got %q", cfg.Cache.RedisURL)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv(EnvWorkers, "many")
	cfg := Default()
	if err := cfg.ApplyEnv(); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("bad workers: %v", err)
	}

	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvSeed, "-1")
	if err := cfg.ApplyEnv(); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("bad seed: %v", err)
	}
}

func TestApplyEnvDotEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte(EnvInputDir+"=/dotenv/runs\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer func(files []string) { dotEnvFiles = files }(dotEnvFiles)
	dotEnvFiles = []string{dotenv, filepath.Join(t.TempDir(), "absent.env")}
	if _, set := os.LookupEnv(EnvInputDir); set {
		t.Skipf("%s set in the test environment", EnvInputDir)
	}
	t.Cleanup(func() { os.Unsetenv(EnvInputDir) })

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.InputDir != "/dotenv/runs" {
		t.Errorf("input_dir = %q", cfg.InputDir)
	}
}

func TestResolveSeed(t *testing.T) {
	cfg := Default()
	seed, chosen := cfg.ResolveSeed()
	if !chosen || cfg.Seed == nil || *cfg.Seed != seed {
		t.Errorf("random seed not recorded: %d %v", seed, chosen)
	}
	again, chosen := cfg.ResolveSeed()
	if chosen || again != seed {
		t.Errorf("second call = %d %v", again, chosen)
	}
}

func TestResolveCircuits(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dart.blif", "common", "rr_graph.xml")
	os.MkdirAll(filepath.Dir(input), 0o755)
	os.WriteFile(input, []byte("<rr_graph/>"), 0o644)

	cfg := Default()
	cfg.InputDir = dir
	got, err := cfg.ResolveCircuits()
	if err != nil || len(got) != 1 || got[0].Name != "dart" || got[0].Input != input {
		t.Errorf("discovered %v, %v", got, err)
	}

	cfg.Circuits = []string{"des90"}
	got, err = cfg.ResolveCircuits()
	if err != nil || len(got) != 1 || got[0].Name != "des90" {
		t.Errorf("configured %v, %v", got, err)
	}
}
