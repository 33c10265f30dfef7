package presenter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/diff_extractor"
	history_contracts "github.com/codecoevoer/coevoer/history/contracts"
	history_models "github.com/codecoevoer/coevoer/history/models"
	"github.com/codecoevoer/coevoer/line_diff"
	"github.com/codecoevoer/coevoer/pipeline"
	"github.com/codecoevoer/coevoer/utils"
)

type ConsoleOptions struct {
	Out      io.Writer
	Root     string
	Theme    string
	Language string
	// Apply writes regenerated tests back to Root; AssumeYes skips the confirmation prompt.
	Apply     bool
	AssumeYes bool
	Input     *bufio.Reader
	Store     history_contracts.IHistoryStore
	Logger    *slog.Logger
}

// ConsolePresenter prints regenerated tests with their line diff, keeps them in the history store
// and optionally writes them over the test file.
type ConsolePresenter struct {
	options   ConsoleOptions
	logger    *slog.Logger
	published int
	applied   int
}

func NewConsolePresenter(options ConsoleOptions) *ConsolePresenter {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	if options.Input == nil {
		options.Input = bufio.NewReader(os.Stdin)
	}
	if options.Theme == "" {
		options.Theme = "dracula"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsolePresenter{options: options, logger: logger}
}

// Publish implements pipeline.Sink.
func (p *ConsolePresenter) Publish(ctx context.Context, event pipeline.Event) error {
	out := p.options.Out
	test := event.Test

	header := fmt.Sprintf("🧪 %s needs an update after changes to %s", test.TestPath, event.Candidate.ProductionPath)
	if event.Commit != nil {
		header += fmt.Sprintf(" (commit %s)", shortHash(event.Commit.CommitHash))
	}
	if added, deleted := diff_extractor.Stats(event.Candidate.DiffText); added+deleted > 0 {
		header += fmt.Sprintf("\n%s: +%d -%d", event.Candidate.ProductionPath, added, deleted)
	}
	fmt.Fprintln(out, lipgloss.BoxStyle.Render(header))

	diff := line_diff.Render(event.OldContent, test.Content)
	WriteLineDiff(out, diff)
	added, removed := diff.Counts()
	fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("%d added, %d removed", added, removed)))

	language := utils.GetSupportedLanguage(test.TestPath)
	if language == "" {
		language = p.options.Language
	}

	if p.options.Store != nil {
		entry := &history_models.Entry{
			RunID:          event.RunID,
			ProductionPath: event.Candidate.ProductionPath,
			TestPath:       test.TestPath,
			Language:       language,
			Content:        test.Content,
		}
		if event.Commit != nil {
			entry.CommitHash = event.Commit.CommitHash
			entry.CommitMessage = event.Commit.Message
		}
		if err := p.options.Store.Save(entry); err != nil {
			return fmt.Errorf("saving history entry: %w", err)
		}
		fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("saved as history entry %s", entry.ID)))
	}
	p.published++

	if !p.options.Apply {
		return nil
	}

	if !p.options.AssumeYes {
		confirmed, err := utils.ConfirmPrompt(ctx, p.options.Input, fmt.Sprintf("Write the regenerated test to %s?", test.TestPath))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Skipped."))
			return nil
		}
	}

	if err := WriteTest(p.options.Root, test.TestPath, test.Content); err != nil {
		return err
	}
	p.applied++
	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("✓ Updated %s", test.TestPath)))
	return nil
}

// HighlightTest prints content with syntax highlighting.
func (p *ConsolePresenter) HighlightTest(ctx context.Context, testPath, content string) error {
	language := utils.GetSupportedLanguage(testPath)
	if language == "" {
		language = p.options.Language
	}
	return utils.RenderCodeWithContext(ctx, p.options.Out, content, language, p.options.Theme)
}

// Close prints what the presenter did during the run.
func (p *ConsolePresenter) Close() error {
	if p.published == 0 {
		return nil
	}
	message := fmt.Sprintf("%d regenerated test(s)", p.published)
	if p.options.Apply {
		message += fmt.Sprintf(", %d written", p.applied)
	}
	_, err := fmt.Fprintln(p.options.Out, lipgloss.Info.Render(message))
	return err
}

// WriteTest replaces the test file at root/testPath.
func WriteTest(root, testPath, content string) error {
	target := filepath.Join(root, filepath.FromSlash(testPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// WriteLineDiff prints a line diff, colouring added and removed lines.
func WriteLineDiff(w io.Writer, diff line_diff.LineDiff) {
	for _, line := range diff {
		switch line.Kind {
		case line_diff.Added:
			fmt.Fprintln(w, lipgloss.Green.Render("+ "+line.Text))
		case line_diff.Removed:
			fmt.Fprintln(w, lipgloss.Red.Render("- "+line.Text))
		default:
			fmt.Fprintln(w, lipgloss.Gray.Render("  "+line.Text))
		}
	}
}
