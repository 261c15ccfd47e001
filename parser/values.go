package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

// BVCounts is the decoded 3BV line. Present is false when the line was absent.
type BVCounts struct {
	Completed int
	Board     int
	Solved    bool
	Present   bool
}

// ParseElapsedTime reads "Time: <float> sec" from its second token.
func ParseElapsedTime(f Field) (float64, error) {
	if !f.Present {
		return models.MissingFloat, nil
	}
	tokens := strings.Fields(f.Line)
	if len(tokens) < 2 {
		return 0, malformed(f, errMissingValue)
	}
	return parseMeasure(f, tokens[1])
}

// ParseEstimatedTime reads "Estimated time: <float>".
func ParseEstimatedTime(f Field) (float64, error) {
	if !f.Present {
		return models.MissingFloat, nil
	}
	_, value, ok := strings.Cut(f.Line, ": ")
	if !ok {
		return 0, malformed(f, errMissingValue)
	}
	return parseMeasure(f, value)
}

// Parse3BV reads "3BV: <n>" for a solved board or "3BV: <done> / <total>".
func Parse3BV(f Field) (BVCounts, error) {
	if !f.Present {
		return BVCounts{Completed: models.MissingInt, Board: models.MissingInt}, nil
	}
	value := f.Value()
	if !strings.Contains(value, "/") {
		n, err := parseCount(f, value)
		if err != nil {
			return BVCounts{}, err
		}
		return BVCounts{Completed: n, Board: n, Solved: true, Present: true}, nil
	}

	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return BVCounts{}, malformed(f, err3BVSeparator)
	}
	completed, err := parseCount(f, parts[0])
	if err != nil {
		return BVCounts{}, err
	}
	board, err := parseCount(f, parts[1])
	if err != nil {
		return BVCounts{}, err
	}
	if completed > board {
		return BVCounts{}, malformed(f, errCompletedExceed)
	}
	// A zero board is left for the division check.
	if board > 0 && completed == board {
		return BVCounts{}, malformed(f, errUnsolvedFull)
	}
	return BVCounts{Completed: completed, Board: board, Present: true}, nil
}

// Parse3BVPerSec reads the value after the first whitespace of "3BV/sec: <float>".
func Parse3BVPerSec(f Field) (float64, error) {
	if !f.Present {
		return models.MissingFloat, nil
	}
	_, value, ok := strings.Cut(f.Line, " ")
	if !ok {
		return 0, malformed(f, errMissingValue)
	}
	return parseMeasure(f, value)
}

// ParseClicks reads "Clicks: <useful>+<wasted>". Both halves share one
// absence decision.
func ParseClicks(f Field) (useful, wasted int, err error) {
	if !f.Present {
		return models.MissingInt, models.MissingInt, nil
	}
	parts := strings.Split(f.Value(), "+")
	if len(parts) != 2 {
		return 0, 0, malformed(f, errClickSeparator)
	}
	if useful, err = parseCount(f, parts[0]); err != nil {
		return 0, 0, err
	}
	if wasted, err = parseCount(f, parts[1]); err != nil {
		return 0, 0, err
	}
	return useful, wasted, nil
}

// ParseEfficiency reads "Efficiency: <pct>%".
func ParseEfficiency(f Field) (float64, error) {
	if !f.Present {
		return models.MissingFloat, nil
	}
	return parseMeasure(f, strings.ReplaceAll(f.Value(), "%", ""))
}

func parseCount(f Field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, malformed(f, errMissingValue)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, malformed(f, err)
	}
	if n < 0 {
		return 0, malformed(f, errNegative)
	}
	return n, nil
}

func parseMeasure(f Field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, malformed(f, errMissingValue)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, malformed(f, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed(f, errNotFinite)
	}
	if v < 0 {
		return 0, malformed(f, errNegative)
	}
	return v, nil
}
