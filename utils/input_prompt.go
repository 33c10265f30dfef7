package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/codecoevoer/coevoer/constants/lipgloss"
)

// InputPromptWithContext prints question and reads one line, giving up when ctx is cancelled.
func InputPromptWithContext(ctx context.Context, reader *bufio.Reader, question string) (string, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Print(lipgloss.BlueSky.Render(question + " > "))

		userInput, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			errChan <- fmt.Errorf("error reading input: %w", err)
			return
		}
		inputChan <- strings.TrimSpace(userInput)
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}

// ConfirmPrompt asks a yes/no question; only "y" and "yes" confirm.
func ConfirmPrompt(ctx context.Context, reader *bufio.Reader, question string) (bool, error) {
	answer, err := InputPromptWithContext(ctx, reader, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
