// Package app wires configuration into a ready-to-run collector.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/ingest"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
	"github.com/aluiziolira/go-scrape-minesweeper/parser"
	"github.com/aluiziolira/go-scrape-minesweeper/pipeline"
	"github.com/aluiziolira/go-scrape-minesweeper/processor"
	"github.com/aluiziolira/go-scrape-minesweeper/scraper"
	"github.com/aluiziolira/go-scrape-minesweeper/snapshot"
	"github.com/aluiziolira/go-scrape-minesweeper/store"
)

// App holds the long-lived collaborators shared across runs.
type App struct {
	Config     *config.Config
	Metrics    *scraper.Metrics
	Fetcher    processor.Fetcher
	Authorizer *ingest.Authorizer
	Writer     pipeline.OutputWriter
	Index      processor.Index
	Snapshots  snapshot.Store
	Engine     *parser.Engine
}

// New builds an App from a validated cfg. dbOpts sizes the database pool
// when cfg.OutputFormat is "db".
func New(ctx context.Context, cfg *config.Config, dbOpts store.Options) (*App, error) {
	metrics := scraper.NewMetrics()
	s, err := scraper.NewScraper(cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("initialise scraper: %w", err)
	}
	snapshots, err := snapshot.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialise snapshots: %w", err)
	}

	a := &App{
		Config:     cfg,
		Metrics:    metrics,
		Fetcher:    s,
		Authorizer: ingest.NewAuthorizer(cfg.JWTSecret),
		Snapshots:  snapshots,
		Engine:     parser.NewEngine(cfg.SignificanceThreshold),
	}

	if cfg.OutputFormat == "db" {
		db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, dbOpts)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
			db.Close()
			return nil, err
		}
		st := store.New(db, cfg.DatabaseDriver)
		a.Writer = st
		a.Index = st
		return a, nil
	}

	writer, err := CreateWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	a.Writer = writer
	return a, nil
}

// CreateWriter returns the file writer for format.
func CreateWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Close releases the writer.
func (a *App) Close() error {
	if a.Writer == nil {
		return nil
	}
	return a.Writer.Close()
}

// Run is one batch of jobs sharing a pipeline.
type Run struct {
	pipeline  *pipeline.Pipeline
	processor *processor.Processor

	mu     sync.Mutex
	result *models.RunResult
}

// StartRun opens a pipeline for a batch of jobs.
func (a *App) StartRun(ctx context.Context) (*Run, error) {
	p := pipeline.NewPipeline(ctx, a.Writer, a.Config)
	p.Start(a.Config.Parallelism)
	if a.Config.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	proc, err := processor.New(processor.Options{
		Fetcher:    a.Fetcher,
		Authorizer: a.Authorizer,
		Index:      a.Index,
		Recorder:   p,
		Snapshots:  a.Snapshots,
		Engine:     a.Engine,
		Username:   a.Config.Username,
		Metrics:    a.Metrics,
		DedupeSize: a.Config.DedupeMaxSize,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	return &Run{
		pipeline:  p,
		processor: proc,
		result:    models.NewRunResult(time.Now()),
	}, nil
}

// Handle processes one job and tallies its outcome. Safe for concurrent use.
func (r *Run) Handle(ctx context.Context, job ingest.JobRequest) (processor.Result, error) {
	res, err := r.processor.Process(ctx, job)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.JobCount++
	switch res.Status {
	case processor.StatusStored:
		r.result.StoredCount++
	case processor.StatusSkipped:
		r.result.SkippedCount++
		r.result.SkipsByType[res.Skip]++
	case processor.StatusDuplicate:
		r.result.DupCount++
	default:
		r.result.FailedCount++
		r.result.ErrorsByType[processor.ErrorLabel(err)]++
		r.result.FailedURLs = append(r.result.FailedURLs, job.URL)
	}
	return res, err
}

// Finish drains the pipeline and returns the final tally.
func (r *Run) Finish() (*models.RunResult, map[string]interface{}, error) {
	closeErr := r.pipeline.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.EndTime = time.Now()
	out := *r.result
	if closeErr != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", closeErr))
	}
	return &out, r.pipeline.GetMetrics(), closeErr
}
