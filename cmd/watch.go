package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codecoevoer/coevoer/config"
	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/pipeline"
	"github.com/codecoevoer/coevoer/presenter"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settleDelay lets a burst of reflog writes (rebase, amend) collapse into one run.
const settleDelay = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check the affected tests every time HEAD moves.",
	Long: `The 'watch' subcommand follows the git reflog of HEAD and runs the same check as 'sync' after every
commit. The configuration file is re-read before each run, so setting 'enable: false' pauses the watcher
without stopping it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		assumeYes, _ := cmd.Flags().GetBool("yes")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleWatchCommand(cmd, rootDependencies, presenter.ConsoleOptions{Apply: apply, AssumeYes: assumeYes})
	},
}

func init() {
	watchCmd.Flags().Bool("apply", false, "Write regenerated tests back to the project")
	watchCmd.Flags().BoolP("yes", "y", false, "Do not ask before writing a regenerated test")

	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(cmd *cobra.Command, rootDependencies *RootDependencies, options presenter.ConsoleOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootDependencies.Git.CheckGitRepo(ctx); err != nil {
		return err
	}
	headLog, err := rootDependencies.Git.HeadLogPath(ctx)
	if err != nil {
		return err
	}
	// A repository without commits has no logs directory yet.
	if err := os.MkdirAll(filepath.Dir(headLog), 0755); err != nil {
		return fmt.Errorf("creating reflog directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(headLog)); err != nil {
		return fmt.Errorf("watching %s: %w", headLog, err)
	}

	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("Watching %s, press Ctrl+C to stop", headLog)))

	timer := time.NewTimer(settleDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println(lipgloss.Gray.Render("Stopped watching."))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isHeadLogEvent(event, headLog) {
				timer.Reset(settleDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rootDependencies.Logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			rootDependencies, err = reloadDependencies(cmd, rootDependencies)
			if err != nil {
				fmt.Println(lipgloss.Red.Render(err.Error()))
				continue
			}
			if !rootDependencies.Config.Enable {
				rootDependencies.Logger.Info("checking is disabled in the configuration, skipping commit")
				continue
			}

			rootDependencies.TokenManagement.ClearToken()
			err = rootDependencies.runOnce(ctx, options, rootDependencies.Config.CompareWithPrevious)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				fmt.Println(lipgloss.Gray.Render("Stopped watching."))
				return nil
			case errors.Is(err, pipeline.ErrSourceUnavailable):
				fmt.Println(lipgloss.Red.Render(err.Error()))
			default:
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("run failed: %v", err)))
			}
		}
	}
}

// isHeadLogEvent reports whether event appended to or recreated the HEAD reflog.
func isHeadLogEvent(event fsnotify.Event, headLog string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(headLog) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// reloadDependencies rebuilds the dependencies when the configuration file changed on disk.
func reloadDependencies(cmd *cobra.Command, current *RootDependencies) (*RootDependencies, error) {
	cfg, err := config.LoadConfigWithCache(cmd.Root(), current.Cwd)
	if err != nil {
		return current, err
	}
	if cfg == current.Config {
		return current, nil
	}
	current.Logger.Info("configuration changed, reloading")
	reloaded, err := newRootDependencies(current.Cwd, cfg)
	if err != nil {
		return current, err
	}
	return reloaded, nil
}
