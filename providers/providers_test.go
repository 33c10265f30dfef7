package providers

import (
	"context"
	"testing"
	"time"

	"github.com/codecoevoer/coevoer/providers/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls     int
	deadlines []time.Time
}

func (c *countingProvider) ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error) {
	c.calls++
	if deadline, ok := ctx.Deadline(); ok {
		c.deadlines = append(c.deadlines, deadline)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return models.NewTextResponse("fake", prompt, models.Usage{}), nil
}

func TestChatProviderFactory(t *testing.T) {
	for _, name := range []string{"openai", "OpenAI", "azure-openai", "ollama", "deepseek"} {
		t.Run(name, func(t *testing.T) {
			provider, err := ChatProviderFactory(&AIProviderConfig{Provider: name, Model: "m"}, nil)

			require.NoError(t, err)
			assert.NotNil(t, provider)
		})
	}
}

func TestChatProviderFactory_Unsupported(t *testing.T) {
	_, err := ChatProviderFactory(&AIProviderConfig{Provider: "carrier-pigeon"}, nil)

	assert.Error(t, err)
}

func TestNewRateLimited_DisabledReturnsSameProvider(t *testing.T) {
	inner := &countingProvider{}

	assert.Same(t, inner, NewRateLimited(inner, 0))
}

func TestNewRateLimited_PassesThrough(t *testing.T) {
	inner := &countingProvider{}
	provider := NewRateLimited(inner, 6000)

	resp, err := provider.ChatCompletionRequest(context.Background(), "hello")
	require.NoError(t, err)

	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, 1, inner.calls)
}

func TestNewRateLimited_HonoursCancellation(t *testing.T) {
	inner := &countingProvider{}
	provider := NewRateLimited(inner, 1)

	_, err := provider.ChatCompletionRequest(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = provider.ChatCompletionRequest(ctx, "second")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestNewRateLimited_CancellationAbortsWaitUnderDeadline(t *testing.T) {
	inner := &countingProvider{}
	provider := NewRateLimited(inner, 1)
	_, err := provider.ChatCompletionRequest(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = provider.ChatCompletionRequest(ctx, "second")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestNewRateLimited_DeadlineBoundsTheCallNotTheWait(t *testing.T) {
	inner := &countingProvider{}
	// One slot every 100ms; the burst slot goes to the first call.
	provider := NewRateLimited(inner, 600)
	_, err := provider.ChatCompletionRequest(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	start := time.Now()
	resp, err := provider.ChatCompletionRequest(ctx, "second")

	require.NoError(t, err)
	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "second", content)
	require.Len(t, inner.deadlines, 1)
	assert.True(t, inner.deadlines[0].After(start.Add(40*time.Millisecond)), "the call gets its budget after the wait")
}
