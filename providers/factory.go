package providers

import (
	"fmt"
	"strings"

	"github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/providers/ollama"
	"github.com/codecoevoer/coevoer/providers/openai"
	contracts2 "github.com/codecoevoer/coevoer/token_management/contracts"
)

// AIProviderConfig is the ai_provider_config section of the configuration.
type AIProviderConfig struct {
	Provider    string   `mapstructure:"provider"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	ApiKey      string   `mapstructure:"api_key"`
	ApiVersion  string   `mapstructure:"api_version"`
	Temperature *float32 `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// ChatProviderFactory builds the oracle named by config.Provider.
// openai covers every OpenAI-compatible endpoint (azure-openai, qwen, deepseek, openrouter) through base_url.
func ChatProviderFactory(config *AIProviderConfig, tokenManagement contracts2.ITokenManagement) (contracts.IChatAIProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("missing ai provider configuration")
	}

	switch strings.ToLower(config.Provider) {
	case "openai", "azure-openai", "azure", "qwen", "deepseek", "openrouter":
		return openai.NewOpenAIChatProvider(&openai.OpenAIConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			ApiKey:          config.ApiKey,
			ApiVersion:      config.ApiVersion,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			TokenManagement: tokenManagement,
		}), nil
	case "ollama":
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			TokenManagement: tokenManagement,
		}), nil
	default:
		return nil, fmt.Errorf("provider '%s' is not supported", config.Provider)
	}
}
