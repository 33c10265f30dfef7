package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/history/models"
	"github.com/codecoevoer/coevoer/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Remove regenerated tests kept by earlier runs.",
	Long: `The 'clear-history' command removes stored regenerated tests from the history directory.
Without pruning flags everything is removed. --older-than and --keep remove only old entries,
and --dry-run reports how many entries would go.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		keep, _ := cmd.Flags().GetInt("keep")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		prune := models.PruneOptions{MaxAge: olderThan, MaxEntries: keep, DryRun: dryRun}
		return handleClearHistoryCommand(cmd.Context(), rootDependencies, force, stats, prune)
	},
}

func init() {
	clearHistoryCmd.Flags().BoolP("force", "f", false, "Clear without confirmation")
	clearHistoryCmd.Flags().BoolP("stats", "s", false, "Show history statistics instead of clearing")
	clearHistoryCmd.Flags().Duration("older-than", 0, "Only remove entries older than this (e.g. 720h)")
	clearHistoryCmd.Flags().Int("keep", 0, "Only remove entries beyond the newest N")
	clearHistoryCmd.Flags().Bool("dry-run", false, "Report what pruning would remove without removing it")

	rootCmd.AddCommand(clearHistoryCmd)
}

func handleClearHistoryCommand(ctx context.Context, rootDependencies *RootDependencies, force bool, showStats bool, prune models.PruneOptions) error {
	store := rootDependencies.Store

	if showStats {
		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Println(lipgloss.Info.Render("History Statistics:"))
		fmt.Printf("  History Directory: %s\n", rootDependencies.Config.HistoryDir)
		fmt.Printf("  Entries: %d\n", stats.Entries)
		fmt.Printf("  Total Size: %.2f KB\n", float64(stats.TotalSizeBytes)/1024)
		if stats.Entries > 0 {
			fmt.Printf("  Oldest: %s\n", stats.Oldest.Local().Format(time.DateTime))
			fmt.Printf("  Newest: %s\n", stats.Newest.Local().Format(time.DateTime))
		}
		return nil
	}

	pruning := prune.MaxAge > 0 || prune.MaxEntries > 0
	if prune.DryRun && !pruning {
		return fmt.Errorf("--dry-run needs --older-than or --keep")
	}

	if !force && !prune.DryRun {
		question := "Remove every regenerated test from the history?"
		if pruning {
			question = "Remove old regenerated tests from the history?"
		}
		confirmed, err := utils.ConfirmPrompt(ctx, bufio.NewReader(os.Stdin), question)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(lipgloss.Yellow.Render("History clear cancelled."))
			return nil
		}
	}

	spinner, _ := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true).
		Start("Clearing history...")

	var removed int
	var err error
	if pruning {
		removed, err = store.Prune(prune)
	} else {
		removed, err = store.Clear()
	}

	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return fmt.Errorf("error clearing history: %w", err)
	}

	if prune.DryRun {
		fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%d entries would be removed.", removed)))
		return nil
	}
	fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d history entries.", removed)))
	return nil
}
