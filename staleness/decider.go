package staleness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codecoevoer/coevoer/embed_data"
	"github.com/codecoevoer/coevoer/pipeline/models"
	"github.com/codecoevoer/coevoer/providers/contracts"
	providers_models "github.com/codecoevoer/coevoer/providers/models"
	"github.com/codecoevoer/coevoer/utils"
)

// NegativeToken is the only triage answer that keeps a test as it is.
const NegativeToken = "no"

// ErrEmptyRegeneration is returned when the regeneration reply holds no code once fences are removed.
var ErrEmptyRegeneration = fmt.Errorf("%w: empty regenerated test", providers_models.ErrMalformedResponse)

// Decision is the result of checking one candidate. Regenerated is set only for Stale.
type Decision struct {
	Verdict     models.Verdict
	Regenerated *models.RegeneratedTest
	// TriageTimedOut marks a Stale verdict that came from the timeout fail-safe rather than from the oracle.
	TriageTimedOut bool
}

// DeciderConfig tunes a Decider. A zero Timeout means oracle calls are only bounded by the caller's context.
type DeciderConfig struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Decider runs the two-phase staleness protocol: triage, then regeneration of stale tests.
type Decider struct {
	provider contracts.IChatAIProvider
	timeout  time.Duration
	logger   *slog.Logger
}

func NewDecider(provider contracts.IChatAIProvider, config DeciderConfig) *Decider {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Decider{provider: provider, timeout: config.Timeout, logger: logger}
}

// ParseVerdict maps a triage reply to a verdict. Anything but "no", after trimming and case folding, is Stale.
func ParseVerdict(content string) models.Verdict {
	if strings.ToLower(strings.TrimSpace(content)) == NegativeToken {
		return models.UpToDate
	}
	return models.Stale
}

// Decide asks whether the candidate's test must change and, if so, asks for its new content.
// Oracle errors and malformed envelopes are returned; the caller decides whether to go on with other candidates.
func (d *Decider) Decide(ctx context.Context, candidate models.TestCandidate, productionSource, testSource string) (*Decision, error) {
	inputs := promptInputs(candidate, productionSource, testSource)

	decision := &Decision{}
	triage, err := d.complete(ctx, inputs+string(embed_data.TriagePrompt))
	switch {
	case err == nil:
		decision.Verdict = ParseVerdict(triage)
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		d.logger.Warn("triage timed out, treating test as stale", "test", candidate.TestPath, "timeout", d.timeout)
		decision.Verdict = models.Stale
		decision.TriageTimedOut = true
	default:
		return nil, fmt.Errorf("triage of %s failed: %w", candidate.TestPath, err)
	}

	d.logger.Debug("triage verdict", "production", candidate.ProductionPath, "test", candidate.TestPath, "verdict", decision.Verdict)
	if decision.Verdict == models.UpToDate {
		return decision, nil
	}

	reply, err := d.complete(ctx, inputs+string(embed_data.RegeneratePrompt))
	if err != nil {
		return nil, fmt.Errorf("regeneration of %s failed: %w", candidate.TestPath, err)
	}
	content := utils.StripCodeFences(reply)
	if content == "" {
		return nil, fmt.Errorf("regeneration of %s failed: %w", candidate.TestPath, ErrEmptyRegeneration)
	}

	decision.Regenerated = &models.RegeneratedTest{TestPath: candidate.TestPath, Content: content}
	return decision, nil
}

func (d *Decider) complete(ctx context.Context, prompt string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	response, err := d.provider.ChatCompletionRequest(ctx, prompt)
	if err != nil {
		return "", err
	}
	return response.FirstContent()
}

func promptInputs(candidate models.TestCandidate, productionSource, testSource string) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("## Diff between old and new production code (%s)\n\n```diff\n%s\n```\n\n", candidate.ProductionPath, candidate.DiffText))
	prompt.WriteString(fmt.Sprintf("## New production code (%s)\n\n```%s\n%s\n```\n\n", candidate.ProductionPath, utils.GetSupportedLanguage(candidate.ProductionPath), productionSource))
	prompt.WriteString(fmt.Sprintf("## Existing test code (%s)\n\n```%s\n%s\n```\n\n", candidate.TestPath, utils.GetSupportedLanguage(candidate.TestPath), testSource))
	return prompt.String()
}
