package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds collector configuration.
type Config struct {
	BaseURL            string
	Username           string
	ResultSelector     string
	DifficultySelector string

	SignificanceThreshold float64

	Parallelism      int
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	UserAgent        string
	RespectRobotsTxt bool

	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int

	OutputFile     string
	OutputFormat   string // csv, json, dual, or db
	DatabaseDriver string // pgx or sqlite
	DatabaseURL    string

	SnapshotStore string // "", local, or s3
	SnapshotDir   string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string

	JWTSecret   string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns conservative defaults for minesweeper.online.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:               "https://minesweeper.online",
		ResultSelector:        "#result_block",
		DifficultySelector:    "#game_difficulty",
		SignificanceThreshold: 50.0,
		Parallelism:           4,
		Timeout:               15 * time.Second,
		MaxRetries:            2,
		RetryBackoff:          500 * time.Millisecond,
		RetryBackoffMax:       5 * time.Second,
		UserAgent:             "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt:      false,
		PipelineBufferSize:    64,
		BatchSize:             16,
		DedupeMaxSize:         10000,
		OutputFile:            "output/games.csv",
		OutputFormat:          "csv",
		DatabaseDriver:        "sqlite",
		SnapshotDir:           "output/snapshots",
		Verbose:               false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if c.ResultSelector == "" {
		return fmt.Errorf("result selector cannot be empty")
	}
	if c.DifficultySelector == "" {
		return fmt.Errorf("difficulty selector cannot be empty")
	}
	if c.SignificanceThreshold < 0 || c.SignificanceThreshold > 100 {
		return fmt.Errorf("significance threshold must be between 0 and 100")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	switch c.OutputFormat {
	case "csv", "json", "dual":
		if c.OutputFile == "" {
			return fmt.Errorf("output file cannot be empty")
		}
	case "db":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL cannot be empty for db output")
		}
	default:
		return fmt.Errorf("output format must be csv, json, dual, or db")
	}
	if c.DatabaseDriver != "pgx" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("database driver must be pgx or sqlite")
	}

	switch c.SnapshotStore {
	case "":
	case "local":
		if c.SnapshotDir == "" {
			return fmt.Errorf("snapshot dir cannot be empty for local snapshots")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty for s3 snapshots")
		}
	default:
		return fmt.Errorf("snapshot store must be empty, local, or s3")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret cannot be empty")
	}

	return nil
}
