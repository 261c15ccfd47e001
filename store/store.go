package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

// ErrNotFound is returned by Get for an unknown game id.
var ErrNotFound = errors.New("store: game not found")

const insertGame = `INSERT INTO games (
	game_id, played_at, username,
	elapsed_time, estimated_time, board_solved,
	completed_3bv, board_3bv, game_3bvps,
	useful_clicks, wasted_clicks, total_clicks,
	efficiency, solve_percentage, difficulty,
	collected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO NOTHING`

const selectGame = `SELECT
	game_id, played_at, username,
	elapsed_time, estimated_time, board_solved,
	completed_3bv, board_3bv, game_3bvps,
	useful_clicks, wasted_clicks, total_clicks,
	efficiency, solve_percentage, difficulty,
	collected_at
FROM games WHERE game_id = ?`

// Store writes game records to a SQL database keyed by game id.
type Store struct {
	db     *sql.DB
	driver string
}

// New wraps an open database. driver selects the placeholder style.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Exists reports whether a game id has already been stored.
func (s *Store) Exists(ctx context.Context, gameID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(1) FROM games WHERE game_id = ?`), gameID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check game %s: %w", gameID, err)
	}
	return count > 0, nil
}

// Get loads a stored game.
func (s *Store) Get(ctx context.Context, gameID string) (*models.GameRecord, error) {
	var (
		r          models.GameRecord
		difficulty string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(selectGame), gameID).Scan(
		&r.GameID, &r.PlayedAt, &r.Username,
		&r.Stats.ElapsedTime, &r.Stats.EstimatedTime, &r.Stats.BoardSolved,
		&r.Stats.Completed3BV, &r.Stats.Board3BV, &r.Stats.Game3BVPS,
		&r.Stats.UsefulClicks, &r.Stats.WastedClicks, &r.Stats.TotalClicks,
		&r.Stats.Efficiency, &r.Stats.SolvePercentage, &difficulty,
		&r.CollectedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", gameID, err)
	}
	r.Stats.Difficulty = models.Difficulty(difficulty)
	return &r, nil
}

// Count returns the number of stored games.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM games`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return count, nil
}

// Write inserts records in one transaction. Game ids already present are
// left untouched.
func (s *Store) Write(ctx context.Context, records []*models.GameRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := s.rebind(insertGame)
	inserted := int64(0)
	for _, r := range records {
		st := r.Stats
		res, err := tx.ExecContext(ctx, query,
			r.GameID, r.PlayedAt.UTC(), r.Username,
			st.ElapsedTime, st.EstimatedTime, st.BoardSolved,
			st.Completed3BV, st.Board3BV, st.Game3BVPS,
			st.UsefulClicks, st.WastedClicks, st.TotalClicks,
			st.Efficiency, st.SolvePercentage, string(st.Difficulty),
			r.CollectedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert game %s: %w", r.GameID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	if conflicts := int64(len(records)) - inserted; conflicts > 0 {
		slog.Debug("games already stored", slog.Int64("count", conflicts))
	}
	return nil
}

// Validate checks the database is still reachable.
func (s *Store) Validate() error {
	return ping(context.Background(), s.db, 5*time.Second)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
