package contracts

import (
	"context"

	"github.com/codecoevoer/coevoer/providers/models"
)

// IChatAIProvider is the oracle: one prompt in, one completion envelope out.
type IChatAIProvider interface {
	ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error)
}
