package presenter

import (
	"context"
	"time"

	"github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/providers/models"
	"github.com/pterm/pterm"
)

// SpinnerProvider shows a spinner for as long as an oracle call is in flight.
type SpinnerProvider struct {
	provider contracts.IChatAIProvider
	text     string
	spinner  *pterm.SpinnerPrinter
}

// NewSpinnerProvider wraps provider. Calls are sequential, so one spinner at a time is enough.
func NewSpinnerProvider(provider contracts.IChatAIProvider, providerName string) contracts.IChatAIProvider {
	return &SpinnerProvider{
		provider: provider,
		text:     spinnerText(providerName),
		spinner: pterm.DefaultSpinner.
			WithStyle(pterm.NewStyle(pterm.FgCyan)).
			WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
			WithDelay(100 * time.Millisecond).
			WithRemoveWhenDone(true),
	}
}

func spinnerText(providerName string) string {
	switch providerName {
	case "openai":
		return "ChatGPT is reviewing the tests..."
	case "azure-openai", "azure":
		return "Azure OpenAI is reviewing the tests..."
	case "ollama":
		return "Local AI is reviewing the tests..."
	case "deepseek":
		return "DeepSeek is reviewing the tests..."
	default:
		return "AI is reviewing the tests..."
	}
}

func (s *SpinnerProvider) ChatCompletionRequest(ctx context.Context, prompt string) (*models.ChatCompletionResponse, error) {
	running, err := s.spinner.Start(s.text)
	if err == nil {
		defer running.Stop()
	}
	return s.provider.ChatCompletionRequest(ctx, prompt)
}
