// Package processor runs a single collection job from request to record.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/ingest"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
	"github.com/aluiziolira/go-scrape-minesweeper/parser"
	"github.com/aluiziolira/go-scrape-minesweeper/scraper"
	"github.com/aluiziolira/go-scrape-minesweeper/snapshot"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Status is the final state of a job.
type Status string

const (
	StatusStored    Status = "stored"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Fetcher retrieves the results fragments of a game page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.RawResult, error)
}

// Authorizer verifies job tokens.
type Authorizer interface {
	Authorize(token string) (*ingest.Claims, error)
}

// Index answers whether a game was already persisted.
type Index interface {
	Exists(ctx context.Context, gameID string) (bool, error)
}

// Recorder accepts records for persistence.
type Recorder interface {
	Process(records ...*models.GameRecord) error
}

// Stage names the step a job failed in.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageAuthorize Stage = "authorize"
	StageIndex     Stage = "index"
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageRecord    Stage = "record"
)

// StageError wraps a job failure with the step it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether redelivering the job could succeed.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		return false
	}
	switch stageErr.Stage {
	case StageFetch:
		return scraper.Retryable(stageErr.Err)
	case StageIndex, StageRecord:
		return true
	}
	return false
}

// ErrorLabel classifies a job failure for summaries, e.g. "fetch/timeout".
func ErrorLabel(err error) string {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "cancelled"
		}
		return "other"
	}
	switch stageErr.Stage {
	case StageFetch:
		return string(stageErr.Stage) + "/" + scraper.ErrorType(stageErr.Err)
	case StageParse:
		return string(stageErr.Stage) + "/" + parser.ErrorKind(stageErr.Err)
	}
	return string(stageErr.Stage)
}

// Result describes one processed job.
type Result struct {
	RequestID string
	GameID    string
	URL       string
	Status    Status
	Skip      models.SkipReason
	Record    *models.GameRecord
	Duration  time.Duration
}

// Options wires a Processor's collaborators. Index and Snapshots are optional.
// DedupeSize bounds the game ids remembered within one Processor.
type Options struct {
	Fetcher    Fetcher
	Authorizer Authorizer
	Index      Index
	Recorder   Recorder
	Snapshots  snapshot.Store
	Engine     *parser.Engine
	Username   string
	Metrics    *scraper.Metrics
	DedupeSize int
}

const defaultDedupeSize = 10000

// Processor evaluates jobs against the configured player.
type Processor struct {
	opts Options
	seen *lru.Cache[string, struct{}]
	now  func() time.Time
}

func New(opts Options) (*Processor, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("processor: fetcher is required")
	case opts.Authorizer == nil:
		return nil, errors.New("processor: authorizer is required")
	case opts.Recorder == nil:
		return nil, errors.New("processor: recorder is required")
	case opts.Engine == nil:
		return nil, errors.New("processor: engine is required")
	}
	size := opts.DedupeSize
	if size <= 0 {
		size = defaultDedupeSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("processor: dedupe cache: %w", err)
	}
	return &Processor{opts: opts, seen: seen, now: time.Now}, nil
}

// Process runs job to completion. Skips and duplicates are successful
// results, not errors.
func (p *Processor) Process(ctx context.Context, job ingest.JobRequest) (Result, error) {
	start := p.now()
	res := Result{RequestID: uuid.NewString(), URL: job.URL, Status: StatusFailed}
	logger := slog.With(slog.String("request_id", res.RequestID), slog.String("url", job.URL))

	finish := func(err error) (Result, error) {
		res.Duration = p.now().Sub(start)
		p.opts.Metrics.IncJob(string(res.Status))
		if err != nil {
			logger.Error("job failed",
				slog.String("game_id", res.GameID),
				slog.Bool("retryable", Retryable(err)),
				slog.Any("error", err),
			)
			return res, err
		}
		logger.Info("job finished",
			slog.String("game_id", res.GameID),
			slog.String("status", string(res.Status)),
			slog.Duration("duration", res.Duration),
		)
		return res, nil
	}

	if err := job.Validate(); err != nil {
		return finish(&StageError{Stage: StageValidate, Err: err})
	}
	claims, err := p.opts.Authorizer.Authorize(job.Token)
	if err != nil {
		return finish(&StageError{Stage: StageAuthorize, Err: err})
	}
	username, err := p.username(job, claims)
	if err != nil {
		return finish(&StageError{Stage: StageAuthorize, Err: err})
	}
	gameID, err := ingest.GameIDFromURL(job.URL)
	if err != nil {
		return finish(&StageError{Stage: StageValidate, Err: err})
	}
	res.GameID = gameID

	if p.opts.Index != nil {
		exists, err := p.opts.Index.Exists(ctx, gameID)
		if err != nil {
			return finish(&StageError{Stage: StageIndex, Err: err})
		}
		if exists {
			res.Status = StatusDuplicate
			return finish(nil)
		}
	}
	if p.seen.Contains(gameID) {
		res.Status = StatusDuplicate
		return finish(nil)
	}

	raw, err := p.opts.Fetcher.Fetch(ctx, job.URL)
	if err != nil {
		return finish(&StageError{Stage: StageFetch, Err: err})
	}
	fetchedAt := p.now()
	p.saveSnapshot(ctx, logger, gameID, job, raw, fetchedAt)

	outcome, err := p.opts.Engine.Evaluate(raw, username)
	if err != nil {
		p.opts.Metrics.IncParseFailure(parser.ErrorKind(err))
		return finish(&StageError{Stage: StageParse, Err: err})
	}
	if !outcome.Persistable() {
		res.Status = StatusSkipped
		res.Skip = outcome.Skip
		p.opts.Metrics.IncSkip(string(outcome.Skip))
		return finish(nil)
	}

	record := &models.GameRecord{
		GameID:      gameID,
		PlayedAt:    job.Timestamp.Time,
		Username:    username,
		Stats:       outcome.Stats,
		CollectedAt: fetchedAt.UTC(),
	}
	// Concurrent jobs for the same game race here; only the first is recorded.
	if found, _ := p.seen.ContainsOrAdd(gameID, struct{}{}); found {
		res.Status = StatusDuplicate
		return finish(nil)
	}
	if err := p.opts.Recorder.Process(record); err != nil {
		p.seen.Remove(gameID)
		return finish(&StageError{Stage: StageRecord, Err: err})
	}
	res.Status = StatusStored
	res.Record = record
	return finish(nil)
}

// username resolves the player the job is collected for. The token claim
// wins over the configured player; an unsigned job field may only repeat it.
func (p *Processor) username(job ingest.JobRequest, claims *ingest.Claims) (string, error) {
	username := p.opts.Username
	if claims != nil && claims.Username != "" {
		username = claims.Username
	}
	if job.Username != "" && job.Username != username {
		return "", ingest.ErrUsernameMismatch
	}
	return username, nil
}

func (p *Processor) saveSnapshot(ctx context.Context, logger *slog.Logger, gameID string, job ingest.JobRequest, raw models.RawResult, fetchedAt time.Time) {
	if p.opts.Snapshots == nil {
		return
	}
	body, err := snapshot.NewDocument(gameID, job.URL, raw, fetchedAt).Encode()
	if err == nil {
		err = p.opts.Snapshots.Save(ctx, snapshot.Key(gameID, job.Timestamp.Time), body)
	}
	if err != nil {
		logger.Warn("snapshot failed", slog.String("game_id", gameID), slog.Any("error", err))
	}
}
