package models

// CommitChange is one commit reduced to its changed files and their per-file diffs.
// DiffText is aligned by index with ModifiedFiles; an entry is "" when no diff section matched.
type CommitChange struct {
	CommitHash    string
	Message       string
	ModifiedFiles []string
	DiffText      []string
}

// TestCandidate pairs a changed production file with a test file that may cover it.
type TestCandidate struct {
	ProductionPath string
	TestPath       string
	DiffText       string
}

// FileMapping accumulates the candidates of every changed file of one commit, in discovery order.
// Duplicate pairs are allowed.
type FileMapping []TestCandidate

// Verdict is the outcome of the staleness check for one candidate.
type Verdict int

const (
	UpToDate Verdict = iota
	Stale
)

func (v Verdict) String() string {
	if v == Stale {
		return "stale"
	}
	return "up-to-date"
}

// RegeneratedTest is the new body of a stale test file.
type RegeneratedTest struct {
	TestPath string
	Content  string
}
