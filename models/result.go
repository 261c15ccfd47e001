package models

import "time"

// RunResult holds the overall result of a collection run.
type RunResult struct {
	StartTime    time.Time
	EndTime      time.Time
	JobCount     int
	StoredCount  int
	SkippedCount int
	DupCount     int
	FailedCount  int
	SkipsByType  map[SkipReason]int
	ErrorsByType map[string]int
	FailedURLs   []string
}

// NewRunResult returns a result with its maps initialised.
func NewRunResult(start time.Time) *RunResult {
	return &RunResult{
		StartTime:    start,
		SkipsByType:  make(map[SkipReason]int),
		ErrorsByType: make(map[string]int),
	}
}
