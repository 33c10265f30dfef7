package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/codecoevoer/coevoer/presenter"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Check the tests covering the latest commit and regenerate the stale ones.",
	Long: `The 'sync' subcommand reads HEAD, maps every changed file to the unit tests that cover it and asks
the configured model whether each test still holds. Stale tests are regenerated and shown as a line diff.
With --apply the regenerated tests are written over the originals after a confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		assumeYes, _ := cmd.Flags().GetBool("yes")
		noParent, _ := cmd.Flags().GetBool("no-parent")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleSyncCommand(rootDependencies, apply, assumeYes, noParent)
	},
}

func init() {
	syncCmd.Flags().Bool("apply", false, "Write regenerated tests back to the project")
	syncCmd.Flags().BoolP("yes", "y", false, "Do not ask before writing a regenerated test")
	syncCmd.Flags().Bool("no-parent", false, "Diff HEAD against the empty tree instead of its parent")

	rootCmd.AddCommand(syncCmd)
}

func handleSyncCommand(rootDependencies *RootDependencies, apply bool, assumeYes bool, noParent bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	compareWithPrevious := rootDependencies.Config.CompareWithPrevious && !noParent
	options := presenter.ConsoleOptions{Apply: apply, AssumeYes: assumeYes}
	return rootDependencies.runOnce(ctx, options, compareWithPrevious)
}
