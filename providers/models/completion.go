package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks an oracle reply that cannot be read as a completion envelope.
var ErrMalformedResponse = errors.New("malformed oracle response")

// ChatCompletionResponse is the envelope every provider hands back, shaped like an OpenAI chat completion.
type ChatCompletionResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

type Message struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIError is the error body returned by OpenAI-compatible and Ollama endpoints.
type AIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewTextResponse builds a single-choice envelope around content.
func NewTextResponse(model string, content string, usage Usage) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		Model: model,
		Choices: []Choice{{
			Message: &Message{Role: "assistant", Content: &content},
		}},
		Usage: usage,
	}
}

// ParseChatCompletionResponse decodes a raw JSON envelope.
func ParseChatCompletionResponse(raw []byte) (*ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// FirstContent returns the message content of the first choice.
func (r *ChatCompletionResponse) FirstContent() (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: empty envelope", ErrMalformedResponse)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	msg := r.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", fmt.Errorf("%w: first choice has no message content", ErrMalformedResponse)
	}
	return *msg.Content, nil
}
