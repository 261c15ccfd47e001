// Package models defines data structures for the collector.
package models

import "time"

// Sentinels reported for statistics whose source line was absent.
const (
	MissingInt   = -1
	MissingFloat = -1.0
)

// Difficulty is the board difficulty classified from the results page.
type Difficulty string

const (
	DifficultyExpert       Difficulty = "expert"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyOther        Difficulty = "other"
)

// RawResult holds the two fragments retrieved from a rendered results page.
type RawResult struct {
	Text             string
	DifficultyMarker string
}

// GameStats is the typed statistics record for a single finished game.
type GameStats struct {
	ElapsedTime     float64    `csv:"elapsed_time" json:"elapsed_time"`
	EstimatedTime   float64    `csv:"estimated_time" json:"estimated_time"`
	BoardSolved     bool       `csv:"board_solved" json:"board_solved"`
	Completed3BV    int        `csv:"completed_3bv" json:"completed_3bv"`
	Board3BV        int        `csv:"board_3bv" json:"board_3bv"`
	Game3BVPS       float64    `csv:"game_3bvps" json:"game_3bvps"`
	UsefulClicks    int        `csv:"useful_clicks" json:"useful_clicks"`
	WastedClicks    int        `csv:"wasted_clicks" json:"wasted_clicks"`
	TotalClicks     int        `csv:"total_clicks" json:"total_clicks"`
	Efficiency      float64    `csv:"efficiency" json:"efficiency"`
	SolvePercentage float64    `csv:"solve_percentage" json:"solve_percentage"`
	Difficulty      Difficulty `csv:"difficulty" json:"difficulty"`
}

// SkipReason explains why an otherwise valid game is not persisted.
type SkipReason string

const (
	SkipBelowThreshold SkipReason = "below_threshold"
	SkipMissing3BV     SkipReason = "missing_3bv"
)

// Outcome is the result of evaluating one results page. An empty Skip
// means the stats should be persisted.
type Outcome struct {
	Stats GameStats
	Skip  SkipReason
}

// Persistable reports whether the outcome passed the significance gate.
func (o Outcome) Persistable() bool {
	return o.Skip == ""
}

// GameRecord is what the persistence layer stores, keyed by GameID.
type GameRecord struct {
	GameID      string    `json:"game_id"`
	PlayedAt    time.Time `json:"played_at"`
	Username    string    `json:"username"`
	Stats       GameStats `json:"stats"`
	CollectedAt time.Time `json:"collected_at"`
}
