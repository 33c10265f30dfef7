package models

import "time"

// Entry is one regenerated test kept for later review.
type Entry struct {
	ID             string
	RunID          string
	CommitHash     string
	CommitMessage  string
	ProductionPath string
	TestPath       string
	Language       string
	Content        string
	CreatedAt      time.Time
}

// Stats summarizes the history directory.
type Stats struct {
	Entries        int
	TotalSizeBytes int64
	Oldest         time.Time
	Newest         time.Time
}

// PruneOptions selects entries to drop. Zero values disable a criterion.
type PruneOptions struct {
	MaxAge     time.Duration
	MaxEntries int
	DryRun     bool
}
