package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codecoevoer/coevoer/token_management"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionRequest(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "is it stale?", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"yes"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":1,"total_tokens":13}}`))
	}))
	defer server.Close()

	tm := token_management.NewTokenManager()
	provider := NewOpenAIChatProvider(&OpenAIConfig{
		BaseURL:         server.URL,
		Model:           "gpt-4o",
		ApiKey:          "secret",
		TokenManagement: tm,
	})

	resp, err := provider.ChatCompletionRequest(t.Context(), "is it stale?")
	require.NoError(t, err)

	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "yes", content)
	assert.Equal(t, "gpt-4o", gotModel)

	total, input, output := tm.GetCurrentTokenUsage()
	assert.Equal(t, 13, total)
	assert.Equal(t, 12, input)
	assert.Equal(t, 1, output)
}

func TestChatCompletionRequest_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIChatProvider(&OpenAIConfig{BaseURL: server.URL, Model: "gpt-4o", ApiKey: "wrong"})

	_, err := provider.ChatCompletionRequest(t.Context(), "prompt")

	assert.Error(t, err)
}
