package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

// DefaultSignificanceThreshold is the minimum solve percentage worth keeping.
const DefaultSignificanceThreshold = 50.0

// CheckAuthorship confirms username appears in the results text.
func CheckAuthorship(text, username string) error {
	if strings.TrimSpace(username) == "" || !strings.Contains(text, username) {
		return &AuthorshipMismatchError{Username: username}
	}
	return nil
}

// Gate decides whether a parsed game is significant enough to persist.
type Gate struct {
	Threshold float64
}

// Evaluate returns the reason to skip stats, or "" if they pass.
func (g Gate) Evaluate(stats models.GameStats) models.SkipReason {
	if stats.SolvePercentage == models.MissingFloat {
		return models.SkipMissing3BV
	}
	if stats.SolvePercentage < g.Threshold {
		return models.SkipBelowThreshold
	}
	return ""
}

// CheckRecord ensures a record is complete and internally consistent.
func CheckRecord(r *models.GameRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.GameID) == "" {
		return fmt.Errorf("record missing game id")
	}
	if r.PlayedAt.IsZero() {
		return fmt.Errorf("record missing played_at for %s", r.GameID)
	}

	s := r.Stats
	if s.UsefulClicks != models.MissingInt && s.WastedClicks != models.MissingInt &&
		s.TotalClicks != s.UsefulClicks+s.WastedClicks {
		return fmt.Errorf("record %s: total clicks %d != %d+%d", r.GameID, s.TotalClicks, s.UsefulClicks, s.WastedClicks)
	}
	if s.SolvePercentage < 0 || s.SolvePercentage > 100 {
		return fmt.Errorf("record %s: solve percentage %.4f out of range", r.GameID, s.SolvePercentage)
	}
	if s.BoardSolved != (s.SolvePercentage == 100.0) {
		return fmt.Errorf("record %s: solved=%t disagrees with solve percentage %.4f", r.GameID, s.BoardSolved, s.SolvePercentage)
	}
	if s.Completed3BV > s.Board3BV {
		return fmt.Errorf("record %s: completed 3BV %d exceeds board 3BV %d", r.GameID, s.Completed3BV, s.Board3BV)
	}
	return nil
}
