package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	code_models "github.com/codecoevoer/coevoer/code_analyzer/models"
	"github.com/codecoevoer/coevoer/pipeline/models"
	"github.com/codecoevoer/coevoer/project_tree"
	"github.com/codecoevoer/coevoer/staleness"
	"github.com/google/uuid"
)

// ErrSourceUnavailable wraps version-control and file-system failures. They abort the whole run.
var ErrSourceUnavailable = errors.New("source unavailable")

// CommitSource supplies the commit to process.
type CommitSource interface {
	LatestCommit(ctx context.Context, compareWithPrevious bool) (*models.CommitChange, error)
}

// ProjectSource supplies the project tree and file contents.
type ProjectSource interface {
	BuildProjectTree() (*project_tree.ProjectTree, error)
	ReadSource(relativePath string) (*code_models.SourceFile, error)
}

type CandidateMatcher interface {
	Match(ctx context.Context, changedFile string, diffText string, tree *project_tree.ProjectTree) []models.TestCandidate
}

type StalenessDecider interface {
	Decide(ctx context.Context, candidate models.TestCandidate, productionSource, testSource string) (*staleness.Decision, error)
}

// Event is handed to the sink for every regenerated test.
type Event struct {
	RunID      string
	Commit     *models.CommitChange
	Candidate  models.TestCandidate
	Test       models.RegeneratedTest
	OldContent string
}

// Sink receives regenerated tests as soon as they exist.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Outcome records what happened to one candidate. Err is set when the candidate was abandoned.
type Outcome struct {
	Candidate   models.TestCandidate
	Verdict     models.Verdict
	Regenerated *models.RegeneratedTest
	Err         error
}

// Result is everything one run produced.
type Result struct {
	RunID    string
	Commit   *models.CommitChange
	Mapping  models.FileMapping
	Outcomes []Outcome
}

// Summary counts outcomes by kind.
func (r *Result) Summary() (upToDate, stale, failed int) {
	for _, o := range r.Outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Verdict == models.Stale:
			stale++
		default:
			upToDate++
		}
	}
	return upToDate, stale, failed
}

type Config struct {
	CompareWithPrevious bool
	Logger              *slog.Logger
}

// Pipeline sequences diff extraction, candidate matching and staleness decisions for one commit.
type Pipeline struct {
	commits CommitSource
	project ProjectSource
	matcher CandidateMatcher
	decider StalenessDecider
	sink    Sink
	config  Config
	logger  *slog.Logger
}

// New wires a pipeline. The sink may be nil when regenerated tests only need to appear in the Result.
func New(commits CommitSource, project ProjectSource, matcher CandidateMatcher, decider StalenessDecider, sink Sink, config Config) *Pipeline {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		commits: commits,
		project: project,
		matcher: matcher,
		decider: decider,
		sink:    sink,
		config:  config,
		logger:  logger,
	}
}

type pairKey struct {
	production string
	test       string
}

// Run processes the latest commit. Files and candidates are handled one at a time, in order.
// Only source failures and cancellation end a run early; a partial Result is returned with them.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := p.logger.With("run", result.RunID)

	commit, err := p.commits.LatestCommit(ctx, p.config.CompareWithPrevious)
	if err != nil {
		return result, fmt.Errorf("%w: reading commit: %w", ErrSourceUnavailable, err)
	}
	if len(commit.ModifiedFiles) != len(commit.DiffText) {
		return result, fmt.Errorf("%w: commit %s lists %d files but %d diffs", ErrSourceUnavailable, commit.CommitHash, len(commit.ModifiedFiles), len(commit.DiffText))
	}
	result.Commit = commit
	logger.Info("processing commit", "commit", commit.CommitHash, "files", len(commit.ModifiedFiles))

	tree, err := p.project.BuildProjectTree()
	if err != nil {
		return result, fmt.Errorf("%w: building project tree: %w", ErrSourceUnavailable, err)
	}

	for i, file := range commit.ModifiedFiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !tree.Exists(file) {
			logger.Debug("changed file not in project tree, skipping", "file", file)
			continue
		}
		if commit.DiffText[i] == "" {
			logger.Debug("no diff section for changed file", "file", file)
		}
		result.Mapping = append(result.Mapping, p.matcher.Match(ctx, file, commit.DiffText[i], tree)...)
	}
	logger.Info("matched test candidates", "candidates", len(result.Mapping))

	checked := make(map[pairKey]struct{}, len(result.Mapping))
	for _, candidate := range result.Mapping {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		key := pairKey{production: candidate.ProductionPath, test: candidate.TestPath}
		if _, seen := checked[key]; seen {
			logger.Debug("candidate already checked", "production", candidate.ProductionPath, "test", candidate.TestPath)
			continue
		}
		checked[key] = struct{}{}

		outcome, err := p.check(ctx, logger, commit, result.RunID, candidate)
		if err != nil {
			return result, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (p *Pipeline) check(ctx context.Context, logger *slog.Logger, commit *models.CommitChange, runID string, candidate models.TestCandidate) (Outcome, error) {
	outcome := Outcome{Candidate: candidate}

	production, err := p.project.ReadSource(candidate.ProductionPath)
	if err != nil {
		return outcome, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	test, err := p.project.ReadSource(candidate.TestPath)
	if err != nil {
		return outcome, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	decision, err := p.decider.Decide(ctx, candidate, production.Code, test.Code)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		logger.Warn("staleness check failed", "production", candidate.ProductionPath, "test", candidate.TestPath, "error", err)
		outcome.Err = err
		return outcome, nil
	}

	outcome.Verdict = decision.Verdict
	outcome.Regenerated = decision.Regenerated
	logger.Info("staleness verdict", "test", candidate.TestPath, "verdict", decision.Verdict)

	if decision.Regenerated != nil && p.sink != nil {
		event := Event{
			RunID:      runID,
			Commit:     commit,
			Candidate:  candidate,
			Test:       *decision.Regenerated,
			OldContent: test.Code,
		}
		if err := p.sink.Publish(ctx, event); err != nil {
			logger.Warn("publishing regenerated test failed", "test", candidate.TestPath, "error", err)
			outcome.Err = fmt.Errorf("publishing %s: %w", candidate.TestPath, err)
		}
	}

	return outcome, nil
}
