package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/providers/models"
	"golang.org/x/time/rate"
)

// RateLimitedProvider spaces oracle calls out to stay under a requests-per-minute quota.
type RateLimitedProvider struct {
	provider contracts.IChatAIProvider
	limiter  *rate.Limiter
}

// NewRateLimited wraps provider. A non-positive requestsPerMinute returns provider unchanged.
func NewRateLimited(provider contracts.IChatAIProvider, requestsPerMinute int) contracts.IChatAIProvider {
	if requestsPerMinute <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// ChatCompletionRequest waits for a slot, then calls the wrapped provider.
// A deadline on ctx bounds the call itself: its budget starts once the wait is over.
func (p *RateLimitedProvider) ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error) {
	deadline, bounded := ctx.Deadline()
	if !bounded {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for oracle rate limit: %w", err)
		}
		return p.provider.ChatCompletionRequest(ctx, prompt)
	}

	budget := time.Until(deadline)
	if budget <= 0 {
		return nil, ctx.Err()
	}

	// callCtx follows cancellation of ctx but not its deadline.
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			cancel()
		}
	})
	defer stop()

	if err := p.limiter.Wait(callCtx); err != nil {
		return nil, fmt.Errorf("waiting for oracle rate limit: %w", err)
	}

	callCtx, cancelCall := context.WithTimeout(callCtx, budget)
	defer cancelCall()
	return p.provider.ChatCompletionRequest(callCtx, prompt)
}
