package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/history/models"
	"github.com/codecoevoer/coevoer/line_diff"
	"github.com/codecoevoer/coevoer/presenter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List regenerated tests kept from earlier runs.",
	Long: `The 'history' subcommand lists every regenerated test stored by 'sync' and 'watch'.
Use --show with an entry id (or a unique prefix of it) to compare a stored test with the file on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		show, _ := cmd.Flags().GetString("show")
		format, _ := cmd.Flags().GetString("format")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		if show == "" {
			return listHistory(os.Stdout, rootDependencies)
		}
		return showHistoryEntry(cmd.Context(), os.Stdout, rootDependencies, show, format)
	},
}

func init() {
	historyCmd.Flags().String("show", "", "Entry id (or unique prefix) to display")
	historyCmd.Flags().String("format", "lines", "How to display an entry: lines, unified or code")

	rootCmd.AddCommand(historyCmd)
}

func listHistory(out io.Writer, rootDependencies *RootDependencies) error {
	entries, err := rootDependencies.Store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, lipgloss.Yellow.Render("No regenerated tests yet."))
		return nil
	}

	data := pterm.TableData{{"ID", "Created", "Commit", "Test", "Production"}}
	for _, entry := range entries {
		data = append(data, []string{
			entry.ID[:12],
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortCommit(entry.CommitHash),
			entry.TestPath,
			entry.ProductionPath,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
}

func showHistoryEntry(ctx context.Context, out io.Writer, rootDependencies *RootDependencies, id string, format string) error {
	entry, err := rootDependencies.Store.Get(id)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("%s from commit %s", entry.TestPath, shortCommit(entry.CommitHash))
	if entry.CommitMessage != "" {
		header += "\n" + firstLine(entry.CommitMessage)
	}
	fmt.Fprintln(out, lipgloss.BoxStyle.Render(header))

	return renderEntry(ctx, out, rootDependencies, entry, format)
}

func renderEntry(ctx context.Context, out io.Writer, rootDependencies *RootDependencies, entry *models.Entry, format string) error {
	switch format {
	case "code":
		console := presenter.NewConsolePresenter(presenter.ConsoleOptions{
			Out:      out,
			Theme:    rootDependencies.Config.Theme,
			Language: rootDependencies.Config.Language,
		})
		return console.HighlightTest(ctx, entry.TestPath, entry.Content)
	case "lines", "unified":
	default:
		return fmt.Errorf("unknown format '%s', expected lines, unified or code", format)
	}

	current, err := readCurrentTest(rootDependencies.Cwd, entry.TestPath)
	if err != nil {
		return err
	}

	if format == "unified" {
		patch, err := line_diff.Unified("a/"+entry.TestPath, "b/"+entry.TestPath, current, entry.Content, 3)
		if err != nil {
			return fmt.Errorf("rendering unified diff: %w", err)
		}
		_, err = io.WriteString(out, patch)
		return err
	}

	diff := line_diff.Render(current, entry.Content)
	presenter.WriteLineDiff(out, diff)
	added, removed := diff.Counts()
	fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("%d added, %d removed against the file on disk", added, removed)))
	return nil
}

// readCurrentTest returns "" when the test file no longer exists.
func readCurrentTest(root, testPath string) (string, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(testPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", testPath, err)
	}
	return string(content), nil
}

func shortCommit(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func firstLine(message string) string {
	for i, r := range message {
		if r == '\n' {
			return message[:i]
		}
	}
	return message
}
