package types

import "time"

// BatchReport summarizes one indexing batch. Errors holds one entry per
// failed file ("path: reason"); a batch with failures still succeeds.
type BatchReport struct {
	FilesAttempted  int
	FilesCompleted  int
	FilesFailed     int
	PassagesCreated int
	Errors          []string
	Duration        time.Duration
}

// ScoredPassage pairs a passage with its similarity to a base passage.
type ScoredPassage struct {
	Passage    *Passage
	Similarity float64
}
