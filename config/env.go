package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration such as "750ms".
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config) error {
	stringVars := map[string]*string{
		"MINESWEEPER_BASE_URL":            &cfg.BaseURL,
		"MINESWEEPER_USERNAME":            &cfg.Username,
		"MINESWEEPER_RESULT_SELECTOR":     &cfg.ResultSelector,
		"MINESWEEPER_DIFFICULTY_SELECTOR": &cfg.DifficultySelector,
		"MINESWEEPER_USER_AGENT":          &cfg.UserAgent,
		"MINESWEEPER_OUTPUT":              &cfg.OutputFile,
		"MINESWEEPER_FORMAT":              &cfg.OutputFormat,
		"MINESWEEPER_SNAPSHOT_STORE":      &cfg.SnapshotStore,
		"MINESWEEPER_SNAPSHOT_DIR":        &cfg.SnapshotDir,
		"MINESWEEPER_JWT_SECRET":          &cfg.JWTSecret,
		"MINESWEEPER_METRICS_ADDR":        &cfg.MetricsAddr,
		"DATABASE_DRIVER":                 &cfg.DatabaseDriver,
		"DATABASE_URL":                    &cfg.DatabaseURL,
		"AWS_REGION":                      &cfg.AWSRegion,
		"S3_BUCKET":                       &cfg.S3Bucket,
		"S3_PREFIX":                       &cfg.S3Prefix,
	}
	for key, dst := range stringVars {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	intVars := map[string]*int{
		"MINESWEEPER_PARALLEL":    &cfg.Parallelism,
		"MINESWEEPER_MAX_RETRIES": &cfg.MaxRetries,
		"MINESWEEPER_BUFFER_SIZE": &cfg.PipelineBufferSize,
		"MINESWEEPER_BATCH_SIZE":  &cfg.BatchSize,
		"MINESWEEPER_DEDUPE_MAX":  &cfg.DedupeMaxSize,
	}
	for key, dst := range intVars {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durationVars := map[string]*time.Duration{
		"MINESWEEPER_TIMEOUT":           &cfg.Timeout,
		"MINESWEEPER_RETRY_BACKOFF":     &cfg.RetryBackoff,
		"MINESWEEPER_RETRY_BACKOFF_MAX": &cfg.RetryBackoffMax,
	}
	for key, dst := range durationVars {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := EnvFloat("MINESWEEPER_THRESHOLD"); err != nil {
		return err
	} else if ok {
		cfg.SignificanceThreshold = value
	}
	if value, ok, err := EnvBool("MINESWEEPER_RESPECT_ROBOTS"); err != nil {
		return err
	} else if ok {
		cfg.RespectRobotsTxt = value
	}
	if value, ok, err := EnvBool("MINESWEEPER_VERBOSE"); err != nil {
		return err
	} else if ok {
		cfg.Verbose = value
	}
	return nil
}

// Load builds a configuration from defaults, .env files and the environment.
func Load(dotenvPaths ...string) (*Config, error) {
	if err := LoadDotEnv(dotenvPaths...); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
