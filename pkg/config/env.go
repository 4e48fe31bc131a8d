package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// Environment variables that override file values.
const (
	EnvInputDir     = "RRTHIN_INPUT_DIR"
	EnvOutputDir    = "RRTHIN_OUTPUT_DIR"
	EnvWorkers      = "RRTHIN_WORKERS"
	EnvSeed         = "RRTHIN_SEED"
	EnvCacheBackend = "RRTHIN_CACHE_BACKEND"
	EnvRedisURL     = "RRTHIN_REDIS_URL"
)

// dotEnvFiles are loaded before the environment is read. Variables already
// set in the process environment win over the files.
var dotEnvFiles = []string{".env"}

// ApplyEnv loads .env (if present) and applies RRTHIN_* overrides.
func (c *Config) ApplyEnv() error {
	for _, f := range dotEnvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "load %s", f)
		}
	}

	setString(&c.InputDir, EnvInputDir)
	setString(&c.OutputDir, EnvOutputDir)
	setString(&c.Cache.Backend, EnvCacheBackend)
	setString(&c.Cache.RedisURL, EnvRedisURL)

	if v, ok := os.LookupEnv(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "%s", EnvWorkers)
		}
		c.Workers = n
	}
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "%s", EnvSeed)
		}
		c.Seed = &seed
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
