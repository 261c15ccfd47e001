// Package parser turns a rendered minesweeper results block into typed
// statistics and decides whether they are worth keeping.
package parser

import "github.com/aluiziolira/go-scrape-minesweeper/models"

// Parse extracts, parses and derives the statistics in raw.
func Parse(raw models.RawResult) (models.GameStats, error) {
	lines := SplitLines(raw.Text)

	elapsed, err := ParseElapsedTime(lines.Find(PrefixTime))
	if err != nil {
		return models.GameStats{}, err
	}
	estimated, err := ParseEstimatedTime(lines.Find(PrefixEstimatedTime))
	if err != nil {
		return models.GameStats{}, err
	}
	bv, err := Parse3BV(lines.Find(Prefix3BV))
	if err != nil {
		return models.GameStats{}, err
	}
	bvps, err := Parse3BVPerSec(lines.Find(Prefix3BVPerSec))
	if err != nil {
		return models.GameStats{}, err
	}
	useful, wasted, err := ParseClicks(lines.Find(PrefixClicks))
	if err != nil {
		return models.GameStats{}, err
	}
	efficiency, err := ParseEfficiency(lines.Find(PrefixEfficiency))
	if err != nil {
		return models.GameStats{}, err
	}
	solved, err := SolvePercentage(bv)
	if err != nil {
		return models.GameStats{}, err
	}

	return models.GameStats{
		ElapsedTime:     elapsed,
		EstimatedTime:   estimated,
		BoardSolved:     bv.Solved,
		Completed3BV:    bv.Completed,
		Board3BV:        bv.Board,
		Game3BVPS:       bvps,
		UsefulClicks:    useful,
		WastedClicks:    wasted,
		TotalClicks:     TotalClicks(useful, wasted),
		Efficiency:      efficiency,
		SolvePercentage: solved,
		Difficulty:      ClassifyDifficulty(raw.DifficultyMarker),
	}, nil
}

// Engine runs the authorship check, parsing and the significance gate.
type Engine struct {
	Gate Gate
}

// NewEngine returns an engine gating on threshold.
func NewEngine(threshold float64) *Engine {
	return &Engine{Gate: Gate{Threshold: threshold}}
}

// Evaluate processes one results page for username. A skipped outcome is
// not an error.
func (e *Engine) Evaluate(raw models.RawResult, username string) (models.Outcome, error) {
	if err := CheckAuthorship(raw.Text, username); err != nil {
		return models.Outcome{}, err
	}
	stats, err := Parse(raw)
	if err != nil {
		return models.Outcome{}, err
	}
	return models.Outcome{Stats: stats, Skip: e.Gate.Evaluate(stats)}, nil
}
