package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/providers/models"
	ollama_models "github.com/codecoevoer/coevoer/providers/ollama/models"
	contracts2 "github.com/codecoevoer/coevoer/token_management/contracts"
)

// OllamaConfig implements the oracle for a local Ollama server.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	Temperature     *float32
	MaxTokens       int
	TokenManagement contracts2.ITokenManagement
	HTTPClient      *http.Client
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

// NewOllamaChatProvider initializes a new Ollama oracle.
func NewOllamaChatProvider(config *OllamaConfig) contracts.IChatAIProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaConfig{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		Model:           config.Model,
		Temperature:     config.Temperature,
		MaxTokens:       config.MaxTokens,
		TokenManagement: config.TokenManagement,
		HTTPClient:      client,
	}
}

func (ollamaProvider *OllamaConfig) ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error) {
	reqBody := ollama_models.OllamaChatCompletionRequest{
		Model: ollamaProvider.Model,
		Messages: []ollama_models.Message{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}
	if ollamaProvider.Temperature != nil || ollamaProvider.MaxTokens > 0 {
		reqBody.Options = &ollama_models.Options{
			Temperature: ollamaProvider.Temperature,
			NumPredict:  ollamaProvider.MaxTokens,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ollamaProvider.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("request canceled: %w", err)
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if message := errorMessage(body); message != "" {
			return nil, fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, message)
		}
		return nil, fmt.Errorf("API request failed with status code '%d'", resp.StatusCode)
	}

	var response ollama_models.OllamaChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}

	if ollamaProvider.TokenManagement != nil && response.PromptEvalCount > 0 {
		ollamaProvider.TokenManagement.UsedTokens(response.PromptEvalCount, response.EvalCount)
	}

	return models.NewTextResponse(response.Model, response.Message.Content, models.Usage{
		PromptTokens:     response.PromptEvalCount,
		CompletionTokens: response.EvalCount,
		TotalTokens:      response.PromptEvalCount + response.EvalCount,
	}), nil
}

// errorMessage reads both the OpenAI-style error object and Ollama's plain {"error": "..."} body.
func errorMessage(body []byte) string {
	var apiError models.AIError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Message != "" {
		return apiError.Error.Message
	}
	var plain struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &plain); err == nil {
		return plain.Error
	}
	return ""
}
