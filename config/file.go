package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the optional TOML configuration file. Nil fields are unset.
type FileConfig struct {
	Site     SiteConfig     `toml:"site"`
	Fetch    FetchConfig    `toml:"fetch"`
	Output   OutputConfig   `toml:"output"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// SiteConfig maps the target site and the player being collected.
type SiteConfig struct {
	BaseURL            *string  `toml:"base-url"`
	Username           *string  `toml:"username"`
	ResultSelector     *string  `toml:"result-selector"`
	DifficultySelector *string  `toml:"difficulty-selector"`
	Threshold          *float64 `toml:"threshold"`
}

// FetchConfig maps page retrieval settings.
type FetchConfig struct {
	Parallel        *int    `toml:"parallel"`
	Timeout         *string `toml:"timeout"`
	MaxRetries      *int    `toml:"max-retries"`
	RetryBackoff    *string `toml:"retry-backoff"`
	RetryBackoffMax *string `toml:"retry-backoff-max"`
	RespectRobots   *bool   `toml:"respect-robots"`
}

// OutputConfig maps persistence settings.
type OutputConfig struct {
	File           *string `toml:"file"`
	Format         *string `toml:"format"`
	DatabaseDriver *string `toml:"database-driver"`
	DatabaseURL    *string `toml:"database-url"`
}

// SnapshotConfig maps raw page snapshot settings.
type SnapshotConfig struct {
	Store  *string `toml:"store"`
	Dir    *string `toml:"dir"`
	Region *string `toml:"region"`
	Bucket *string `toml:"bucket"`
	Prefix *string `toml:"prefix"`
}

// LoadFile reads a TOML config from path. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("stat config: %w", err)
	}
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return fc, nil
}

// Apply copies every set field of fc onto cfg.
func (fc FileConfig) Apply(cfg *Config) error {
	setString(&cfg.BaseURL, fc.Site.BaseURL)
	setString(&cfg.Username, fc.Site.Username)
	setString(&cfg.ResultSelector, fc.Site.ResultSelector)
	setString(&cfg.DifficultySelector, fc.Site.DifficultySelector)
	if fc.Site.Threshold != nil {
		cfg.SignificanceThreshold = *fc.Site.Threshold
	}

	if fc.Fetch.Parallel != nil {
		cfg.Parallelism = *fc.Fetch.Parallel
	}
	if fc.Fetch.MaxRetries != nil {
		cfg.MaxRetries = *fc.Fetch.MaxRetries
	}
	if fc.Fetch.RespectRobots != nil {
		cfg.RespectRobotsTxt = *fc.Fetch.RespectRobots
	}
	if err := setDuration(&cfg.Timeout, "fetch.timeout", fc.Fetch.Timeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.RetryBackoff, "fetch.retry-backoff", fc.Fetch.RetryBackoff); err != nil {
		return err
	}
	if err := setDuration(&cfg.RetryBackoffMax, "fetch.retry-backoff-max", fc.Fetch.RetryBackoffMax); err != nil {
		return err
	}

	setString(&cfg.OutputFile, fc.Output.File)
	setString(&cfg.OutputFormat, fc.Output.Format)
	setString(&cfg.DatabaseDriver, fc.Output.DatabaseDriver)
	setString(&cfg.DatabaseURL, fc.Output.DatabaseURL)

	setString(&cfg.SnapshotStore, fc.Snapshot.Store)
	setString(&cfg.SnapshotDir, fc.Snapshot.Dir)
	setString(&cfg.AWSRegion, fc.Snapshot.Region)
	setString(&cfg.S3Bucket, fc.Snapshot.Bucket)
	setString(&cfg.S3Prefix, fc.Snapshot.Prefix)
	return nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func setDuration(dst *time.Duration, name string, value *string) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
