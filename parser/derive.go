package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

// difficultyKeywords is scanned in priority order.
var difficultyKeywords = []struct {
	keyword string
	level   models.Difficulty
}{
	{keyword: "Expert", level: models.DifficultyExpert},
	{keyword: "Intermediate", level: models.DifficultyIntermediate},
	{keyword: "Beginner", level: models.DifficultyBeginner},
}

// TotalClicks sums both click counts, or reports the sentinel if either is absent.
func TotalClicks(useful, wasted int) int {
	if useful == models.MissingInt || wasted == models.MissingInt {
		return models.MissingInt
	}
	return useful + wasted
}

// SolvePercentage is 100 for a solved board and completed/board otherwise.
func SolvePercentage(bv BVCounts) (float64, error) {
	if !bv.Present {
		return models.MissingFloat, nil
	}
	if bv.Solved {
		return 100.0, nil
	}
	if bv.Board == 0 {
		return 0, &DivisionError{Completed: bv.Completed, Board: bv.Board}
	}
	return float64(bv.Completed) / float64(bv.Board) * 100.0, nil
}

// ClassifyDifficulty looks for a difficulty keyword anywhere in marker.
func ClassifyDifficulty(marker string) models.Difficulty {
	for _, entry := range difficultyKeywords {
		if strings.Contains(marker, entry.keyword) {
			return entry.level
		}
	}
	return models.DifficultyOther
}
