package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

func sampleRecord(id string) *models.GameRecord {
	return &models.GameRecord{
		GameID:   id,
		PlayedAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		Username: "alice",
		Stats: models.GameStats{
			ElapsedTime:     41.2,
			EstimatedTime:   41.2,
			BoardSolved:     true,
			Completed3BV:    120,
			Board3BV:        120,
			Game3BVPS:       2.91,
			UsefulClicks:    130,
			WastedClicks:    5,
			TotalClicks:     135,
			Efficiency:      92,
			SolvePercentage: 100,
			Difficulty:      models.DifficultyExpert,
		},
		CollectedAt: time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC),
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestStoreExists(t *testing.T) {
	db, mock := newMock(t)
	s := New(db, DriverPgx)

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM games WHERE game_id = \$1`).
		WithArgs("3891992543").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := s.Exists(context.Background(), "3891992543")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatalf("expected game to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStoreWriteCommits(t *testing.T) {
	db, mock := newMock(t)
	s := New(db, DriverPgx)
	r := sampleRecord("1")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO games .* ON CONFLICT \(game_id\) DO NOTHING`).
		WithArgs(
			r.GameID, r.PlayedAt, r.Username,
			r.Stats.ElapsedTime, r.Stats.EstimatedTime, r.Stats.BoardSolved,
			r.Stats.Completed3BV, r.Stats.Board3BV, r.Stats.Game3BVPS,
			r.Stats.UsefulClicks, r.Stats.WastedClicks, r.Stats.TotalClicks,
			r.Stats.Efficiency, r.Stats.SolvePercentage, string(r.Stats.Difficulty),
			r.CollectedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Write(context.Background(), []*models.GameRecord{r}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStoreWriteRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	s := New(db, DriverPgx)
	insertErr := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO games`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO games`).WillReturnError(insertErr)
	mock.ExpectRollback()

	err := s.Write(context.Background(), []*models.GameRecord{sampleRecord("1"), sampleRecord("2")})
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := New(db, DriverPgx)

	mock.ExpectQuery(`FROM games WHERE game_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := New(nil, DriverPgx)
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("pgx rebind = %q", got)
	}
	lite := New(nil, DriverSQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestOpenUsesDriverAndPings(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing()

	previous := openDB
	t.Cleanup(func() { openDB = previous })
	var gotDriver, gotDSN string
	openDB = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}

	if _, err := Open(context.Background(), DriverPgx, "postgres://localhost/games", DefaultOptions(DriverPgx)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if gotDriver != DriverPgx || gotDSN != "postgres://localhost/games" {
		t.Fatalf("opened %q %q", gotDriver, gotDSN)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	if _, err := Open(context.Background(), DriverPgx, " ", Options{}); err == nil {
		t.Fatalf("expected empty dsn error")
	}
	if _, err := Open(context.Background(), "mysql", "dsn", Options{}); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "games.db")

	db, err := Open(ctx, DriverSQLite, path, DefaultOptions(DriverSQLite))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := New(db, DriverSQLite)
	t.Cleanup(func() { _ = s.Close() })

	if err := Migrate(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	batch := []*models.GameRecord{sampleRecord("1"), sampleRecord("2")}
	if err := s.Write(ctx, batch); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Rewriting an existing game is a no-op.
	if err := s.Write(ctx, []*models.GameRecord{sampleRecord("1")}); err != nil {
		t.Fatalf("Write duplicate: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	ok, err := s.Exists(ctx, "2")
	if err != nil || !ok {
		t.Fatalf("Exists(2) = %t, %v", ok, err)
	}
	ok, err = s.Exists(ctx, "3")
	if err != nil || ok {
		t.Fatalf("Exists(3) = %t, %v", ok, err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
