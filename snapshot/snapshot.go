// Package snapshot keeps the raw page fragments each game was parsed from.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

// Store saves snapshot documents under a key.
type Store interface {
	Save(ctx context.Context, key string, body []byte) error
}

// Document is the stored form of a fetched results page.
type Document struct {
	GameID           string    `json:"game_id"`
	URL              string    `json:"url"`
	FetchedAt        time.Time `json:"fetched_at"`
	Text             string    `json:"text"`
	DifficultyMarker string    `json:"difficulty_marker"`
}

// NewDocument captures raw as fetched from url.
func NewDocument(gameID, url string, raw models.RawResult, fetchedAt time.Time) Document {
	return Document{
		GameID:           gameID,
		URL:              url,
		FetchedAt:        fetchedAt.UTC(),
		Text:             raw.Text,
		DifficultyMarker: raw.DifficultyMarker,
	}
}

// Encode renders the document as indented JSON.
func (d Document) Encode() ([]byte, error) {
	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return body, nil
}

// Key partitions snapshots by the UTC day the game was played.
func Key(gameID string, playedAt time.Time) string {
	return path.Join(playedAt.UTC().Format("2006/01/02"), gameID+".json")
}

// New builds the store selected by cfg.SnapshotStore. It returns nil when
// snapshots are disabled.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SnapshotStore {
	case "":
		return nil, nil
	case "local":
		return NewLocalStore(cfg.SnapshotDir), nil
	case "s3":
		store, err := NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.SnapshotStore)
	}
}
