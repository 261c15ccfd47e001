package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/aluiziolira/go-scrape-minesweeper/app"
	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/ingest"
	"github.com/aluiziolira/go-scrape-minesweeper/processor"
	"github.com/aluiziolira/go-scrape-minesweeper/store"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

var (
	initOnce  sync.Once
	initErr   error
	collector *app.App
)

func initApp() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(".env")
	if err != nil {
		initErr = err
		return
	}
	if err := cfg.Validate(); err != nil {
		initErr = err
		return
	}
	built, err := app.New(context.Background(), cfg, store.LambdaOptions())
	if err != nil {
		initErr = err
		return
	}
	collector = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		slog.Error("bootstrap error", slog.Any("error", initErr))
		return events.SQSEventResponse{BatchItemFailures: failAll(event.Records)}, initErr
	}
	return processBatch(ctx, collector, event), nil
}

// processBatch handles every message in one run. Messages that failed with
// a retryable error are reported back so SQS redelivers only those.
func processBatch(ctx context.Context, a *app.App, event events.SQSEvent) events.SQSEventResponse {
	run, err := a.StartRun(ctx)
	if err != nil {
		slog.Error("starting run", slog.Any("error", err))
		return events.SQSEventResponse{BatchItemFailures: failAll(event.Records)}
	}

	failures := make([]events.SQSBatchItemFailure, 0)
	var stored []events.SQSMessage
	for _, msg := range event.Records {
		job, err := ingest.Decode([]byte(msg.Body))
		if err != nil {
			slog.Error("dropping malformed message",
				slog.String("message_id", msg.MessageId),
				slog.Any("error", err),
			)
			continue
		}

		res, err := run.Handle(ctx, job)
		switch {
		case err == nil && res.Status == processor.StatusStored:
			stored = append(stored, msg)
		case err != nil && processor.Retryable(err):
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}

	result, _, err := run.Finish()
	if err != nil {
		// Records handed to the pipeline may not have been written.
		failures = append(failures, failAll(stored)...)
	}
	slog.Info("batch complete",
		slog.Int("messages", len(event.Records)),
		slog.Int("stored", result.StoredCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("duplicates", result.DupCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("redeliver", len(failures)),
	)
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func failAll(records []events.SQSMessage) []events.SQSBatchItemFailure {
	failures := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, record := range records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func main() {
	lambda.Start(handler)
}
