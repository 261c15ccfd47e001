package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/app"
	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/ingest"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
	"github.com/aluiziolira/go-scrape-minesweeper/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type options struct {
	configFile string
	envFile    string

	url       string
	timestamp string
	token     string
	username  string
	jobsFile  string

	issueToken string
	tokenTTL   time.Duration

	format      string
	output      string
	parallel    int
	maxRetries  int
	threshold   float64
	metricsAddr string
	verbose     bool
}

func main() {
	defaults := config.DefaultConfig()
	var opts options
	flag.StringVar(&opts.configFile, "config", "collector.toml", "TOML config file (optional)")
	flag.StringVar(&opts.envFile, "env", ".env", "dotenv file (optional)")
	flag.StringVar(&opts.url, "url", "", "Game page URL for a single job")
	flag.StringVar(&opts.timestamp, "timestamp", "", "When the game was played (RFC 3339 or Unix seconds)")
	flag.StringVar(&opts.token, "token", "", "Job authorization token")
	flag.StringVar(&opts.username, "username", defaults.Username, "Player whose games are collected")
	flag.StringVar(&opts.jobsFile, "jobs", "", "JSONL file of jobs, or - for stdin")
	flag.StringVar(&opts.issueToken, "issue-token", "", "Print a signed job token for this subject and exit")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-token")
	flag.StringVar(&opts.format, "format", defaults.OutputFormat, "Output format: csv, json, dual, or db")
	flag.StringVar(&opts.output, "output", defaults.OutputFile, "Output file path")
	flag.IntVar(&opts.parallel, "parallel", defaults.Parallelism, "Number of concurrent jobs")
	flag.IntVar(&opts.maxRetries, "max-retries", defaults.MaxRetries, "Maximum retry attempts per page")
	flag.Float64Var(&opts.threshold, "threshold", defaults.SignificanceThreshold, "Minimum solve percentage to persist")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.BoolVar(&opts.verbose, "v", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if opts.issueToken != "" {
		if cfg.JWTSecret == "" {
			slog.Error("jwt secret is required to issue tokens")
			os.Exit(1)
		}
		token, err := ingest.NewAuthorizer(cfg.JWTSecret).IssueToken(opts.issueToken, cfg.Username, opts.tokenTTL)
		if err != nil {
			slog.Error("issue token", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	os.Exit(collect(cfg, opts))
}

// collect runs every job and returns the process exit code. Deferred cleanup
// runs before main exits.
func collect(cfg *config.Config, opts options) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	jobs, closeJobs, err := openJobs(ctx, opts)
	if err != nil {
		slog.Error("reading jobs", slog.Any("error", err))
		return 1
	}
	defer closeJobs()

	a, err := app.New(ctx, cfg, store.DefaultOptions(cfg.DatabaseDriver))
	if err != nil {
		slog.Error("initialising collector", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	metricsServer := startMetricsServer(cfg.MetricsAddr, a)
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("starting collection",
		slog.String("base_url", cfg.BaseURL),
		slog.String("username", cfg.Username),
		slog.String("format", cfg.OutputFormat),
		slog.Int("workers", cfg.Parallelism),
	)

	run, err := a.StartRun(ctx)
	if err != nil {
		slog.Error("starting run", slog.Any("error", err))
		return 1
	}

	decodeFailures := dispatch(ctx, run, jobs, cfg.Parallelism)

	result, metrics, err := run.Finish()
	if err != nil {
		return 1
	}
	result.JobCount += decodeFailures
	result.FailedCount += decodeFailures
	if decodeFailures > 0 {
		result.ErrorsByType["decode"] += decodeFailures
	}

	if err := a.Writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return 1
	}

	printSummary(result, cfg, metrics)
	if result.FailedCount > 0 {
		return 2
	}
	return 0
}

// loadConfig layers defaults, the TOML file, dotenv and environment, then
// flags given explicitly on the command line.
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.DefaultConfig()

	fc, err := config.LoadFile(opts.configFile)
	if err != nil {
		return nil, err
	}
	if err := fc.Apply(cfg); err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			cfg.Username = opts.username
		case "format":
			cfg.OutputFormat = strings.ToLower(opts.format)
		case "output":
			cfg.OutputFile = opts.output
		case "parallel":
			cfg.Parallelism = opts.parallel
		case "max-retries":
			cfg.MaxRetries = opts.maxRetries
		case "threshold":
			cfg.SignificanceThreshold = opts.threshold
		case "metrics-addr":
			cfg.MetricsAddr = opts.metricsAddr
		case "v":
			cfg.Verbose = opts.verbose
		}
	})
	return cfg, nil
}

type jobLine struct {
	job ingest.JobRequest
	err error
}

func openJobs(ctx context.Context, opts options) (<-chan jobLine, func(), error) {
	if opts.url != "" {
		if opts.jobsFile != "" {
			return nil, nil, errors.New("use either -url or -jobs, not both")
		}
		ts, err := ingest.ParseTimestamp(opts.timestamp)
		if err != nil {
			return nil, nil, err
		}
		job := ingest.JobRequest{URL: opts.url, Timestamp: ts, Token: opts.token}
		ch := make(chan jobLine, 1)
		ch <- jobLine{job: job}
		close(ch)
		return ch, func() {}, nil
	}
	if opts.jobsFile == "" {
		return nil, nil, errors.New("either -url or -jobs is required")
	}

	var r io.ReadCloser = os.Stdin
	if opts.jobsFile != "-" {
		f, err := os.Open(opts.jobsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open jobs file: %w", err)
		}
		r = f
	}

	ch := make(chan jobLine)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			job, err := ingest.Decode([]byte(line))
			select {
			case ch <- jobLine{job: job, err: err}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case ch <- jobLine{err: fmt.Errorf("read jobs: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, func() { r.Close() }, nil
}

// dispatch runs jobs on up to workers goroutines and returns how many lines
// could not be decoded.
func dispatch(ctx context.Context, run *app.Run, jobs <-chan jobLine, workers int) int {
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	failures := 0

	for line := range jobs {
		if ctx.Err() != nil {
			break
		}
		if line.err != nil {
			failures++
			slog.Error("skipping job line", slog.Any("error", line.err))
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(job ingest.JobRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			_, _ = run.Handle(ctx, job)
		}(line.job)
	}
	wg.Wait()
	return failures
}

func startMetricsServer(addr string, a *app.App) *http.Server {
	if addr == "" || a.Metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(result *models.RunResult, cfg *config.Config, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)

	fmt.Println("\n" + separator)
	fmt.Println("Collection complete")
	fmt.Printf("  Jobs:          %d\n", result.JobCount)
	fmt.Printf("  Stored:        %d\n", result.StoredCount)
	fmt.Printf("  Skipped:       %d\n", result.SkippedCount)
	if len(result.SkipsByType) > 0 {
		fmt.Printf("  Skip reasons:  %v\n", result.SkipsByType)
	}
	fmt.Printf("  Duplicates:    %d\n", result.DupCount)
	fmt.Printf("  Failed:        %d\n", result.FailedCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if written, ok := metrics["written_records"].(int64); ok {
		fmt.Printf("  Written:       %d\n", written)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	if cfg.OutputFormat == "db" {
		fmt.Printf("  Database:      %s\n", cfg.DatabaseDriver)
	} else {
		fmt.Printf("  Output file:   %s\n", cfg.OutputFile)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
