package openai

import (
	"context"
	"fmt"

	"github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/providers/models"
	contracts2 "github.com/codecoevoer/coevoer/token_management/contracts"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig implements the oracle for OpenAI and OpenAI-compatible endpoints.
type OpenAIConfig struct {
	BaseURL         string
	Model           string
	ApiKey          string
	ApiVersion      string
	Temperature     *float32
	MaxTokens       int
	TokenManagement contracts2.ITokenManagement

	client *goopenai.Client
}

const defaultBaseURL = "https://api.openai.com/v1"

// NewOpenAIChatProvider initializes a new OpenAI oracle.
func NewOpenAIChatProvider(config *OpenAIConfig) contracts.IChatAIProvider {
	clientConfig := goopenai.DefaultConfig(config.ApiKey)
	clientConfig.BaseURL = defaultBaseURL
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.ApiVersion != "" {
		clientConfig.APIVersion = config.ApiVersion
	}

	return &OpenAIConfig{
		BaseURL:         clientConfig.BaseURL,
		Model:           config.Model,
		ApiKey:          config.ApiKey,
		ApiVersion:      config.ApiVersion,
		Temperature:     config.Temperature,
		MaxTokens:       config.MaxTokens,
		TokenManagement: config.TokenManagement,
		client:          goopenai.NewClientWithConfig(clientConfig),
	}
}

func (openAIProvider *OpenAIConfig) ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error) {
	req := goopenai.ChatCompletionRequest{
		Model: openAIProvider.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: openAIProvider.MaxTokens,
	}
	if openAIProvider.Temperature != nil {
		req.Temperature = *openAIProvider.Temperature
	}

	resp, err := openAIProvider.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	if openAIProvider.TokenManagement != nil {
		openAIProvider.TokenManagement.UsedTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	envelope := &models.ChatCompletionResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		content := choice.Message.Content
		envelope.Choices = append(envelope.Choices, models.Choice{
			Index:        choice.Index,
			Message:      &models.Message{Role: choice.Message.Role, Content: &content},
			FinishReason: string(choice.FinishReason),
		})
	}

	return envelope, nil
}
