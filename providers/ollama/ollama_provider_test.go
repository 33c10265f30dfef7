package ollama

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ollama_models "github.com/codecoevoer/coevoer/providers/ollama/models"
	"github.com/codecoevoer/coevoer/token_management"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollama_models.OllamaChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "prompt", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"no"},"done":true,"prompt_eval_count":7,"eval_count":2}`))
	}))
	defer server.Close()

	tm := token_management.NewTokenManager()
	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL + "/api/", Model: "llama3", TokenManagement: tm})

	resp, err := provider.ChatCompletionRequest(t.Context(), "prompt")
	require.NoError(t, err)

	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "no", content)

	total, _, _ := tm.GetCurrentTokenUsage()
	assert.Equal(t, 9, total)
}

func TestChatCompletionRequest_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL, Model: "missing"})

	_, err := provider.ChatCompletionRequest(t.Context(), "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model 'missing' not found")
}
