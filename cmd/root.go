package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/codecoevoer/coevoer/code_analyzer"
	analyzer_contracts "github.com/codecoevoer/coevoer/code_analyzer/contracts"
	"github.com/codecoevoer/coevoer/config"
	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/history"
	history_contracts "github.com/codecoevoer/coevoer/history/contracts"
	"github.com/codecoevoer/coevoer/pipeline"
	"github.com/codecoevoer/coevoer/presenter"
	"github.com/codecoevoer/coevoer/providers"
	provider_contracts "github.com/codecoevoer/coevoer/providers/contracts"
	"github.com/codecoevoer/coevoer/staleness"
	"github.com/codecoevoer/coevoer/test_matcher"
	"github.com/codecoevoer/coevoer/token_management"
	token_contracts "github.com/codecoevoer/coevoer/token_management/contracts"
	"github.com/codecoevoer/coevoer/utils"
	"github.com/spf13/cobra"
)

// RootDependencies is everything a subcommand needs, built once from the loaded configuration.
type RootDependencies struct {
	// Cwd is the project root: the top of the git working tree the command was started in.
	Cwd             string
	Config          *config.Config
	Logger          *slog.Logger
	TokenManagement token_contracts.ITokenManagement
	Provider        provider_contracts.IChatAIProvider
	Analyzer        analyzer_contracts.ICodeAnalyzer
	Git             *utils.GitOperations
	Store           history_contracts.IHistoryStore
}

var rootCmd = &cobra.Command{
	Use:   "coevoer",
	Short: "Keep unit tests in step with the production code they cover.",
	Long: `Coevoer looks at the latest commit, finds the unit tests that cover each changed file,
asks a language model whether each test is still correct and regenerates the ones that are not.
Regenerated tests are shown as a line diff, kept in a local history and can be written back with --apply.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			deps, err := handleRootCommand(cmd)
			if err != nil {
				return err
			}
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("version: %s", deps.Config.Version)))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(err.Error()))
		os.Exit(1)
	}
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}
	root := projectRoot(cmd.Context(), cwd)

	cfg, err := config.LoadConfigWithCache(cmd.Root(), root)
	if err != nil {
		return nil, err
	}

	return newRootDependencies(root, cfg)
}

// projectRoot is the top of the git working tree containing cwd, or cwd itself outside a repository.
func projectRoot(ctx context.Context, cwd string) string {
	if ctx == nil {
		ctx = context.Background()
	}
	top, err := utils.NewGitOperations(cwd).TopLevel(ctx)
	if err != nil || top == "" {
		return cwd
	}
	return top
}

func newRootDependencies(cwd string, cfg *config.Config) (*RootDependencies, error) {
	deps := &RootDependencies{
		Cwd:    cwd,
		Config: cfg,
		Logger: NewLogger(cfg.LogLevel),
	}

	deps.TokenManagement = token_management.NewTokenManager()
	deps.Analyzer = code_analyzer.NewCodeAnalyzer(cwd, deps.Logger)
	deps.Git = utils.NewGitOperations(cwd)

	store, err := history.NewStore(cfg.HistoryDir)
	if err != nil {
		return nil, err
	}
	deps.Store = store

	provider, err := providers.ChatProviderFactory(cfg.AIProviderConfig, deps.TokenManagement)
	if err != nil {
		return nil, err
	}
	provider = providers.NewRateLimited(provider, cfg.RequestsPerMinute)
	deps.Provider = presenter.NewSpinnerProvider(provider, cfg.AIProviderConfig.Provider)

	return deps, nil
}

// projectLanguage falls back to "java" when the tree cannot be built; the pipeline reports that failure itself.
func (deps *RootDependencies) projectLanguage() string {
	tree, err := deps.Analyzer.BuildProjectTree()
	if err != nil {
		return "java"
	}
	return strings.ToLower(deps.Analyzer.DetectProjectLanguage(tree))
}

// NewLogger writes text logs to stderr at the named level; unknown names fall back to info.
func NewLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

// newPipeline wires one run. The sink is owned by the caller.
func (deps *RootDependencies) newPipeline(sink pipeline.Sink, compareWithPrevious bool) *pipeline.Pipeline {
	return pipeline.New(
		deps.Git,
		deps.Analyzer,
		test_matcher.NewMatcher(deps.Provider, deps.Analyzer, deps.Logger),
		staleness.NewDecider(deps.Provider, staleness.DeciderConfig{
			Timeout: deps.Config.OracleTimeout,
			Logger:  deps.Logger,
		}),
		sink,
		pipeline.Config{CompareWithPrevious: compareWithPrevious, Logger: deps.Logger},
	)
}

// runOnce processes the latest commit and prints the run summary.
func (deps *RootDependencies) runOnce(ctx context.Context, options presenter.ConsoleOptions, compareWithPrevious bool) error {
	if err := deps.Git.CheckGitRepo(ctx); err != nil {
		return err
	}

	options.Root = deps.Cwd
	options.Theme = deps.Config.Theme
	options.Language = deps.Config.Language
	if options.Language == "" {
		options.Language = deps.projectLanguage()
	}
	options.Store = deps.Store
	options.Logger = deps.Logger
	console := presenter.NewConsolePresenter(options)
	defer console.Close()

	result, err := deps.newPipeline(console, compareWithPrevious).Run(ctx)
	if err != nil {
		return err
	}

	if len(result.Mapping) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No unit tests cover the files changed in this commit."))
		return nil
	}

	upToDate, stale, failed := result.Summary()
	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("%d up to date, %d regenerated, %d failed", upToDate, stale, failed)))
	for _, outcome := range result.Outcomes {
		if outcome.Err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%s: %v", outcome.Candidate.TestPath, outcome.Err)))
		}
	}
	deps.TokenManagement.DisplayTokens(deps.Config.AIProviderConfig.Provider, deps.Config.AIProviderConfig.Model)
	return nil
}
