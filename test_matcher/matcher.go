package test_matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	analyzer_contracts "github.com/codecoevoer/coevoer/code_analyzer/contracts"
	"github.com/codecoevoer/coevoer/embed_data"
	"github.com/codecoevoer/coevoer/pipeline/models"
	"github.com/codecoevoer/coevoer/project_tree"
	"github.com/codecoevoer/coevoer/providers/contracts"
	providers_models "github.com/codecoevoer/coevoer/providers/models"
	"github.com/codecoevoer/coevoer/utils"
)

// Matcher finds the test files that may cover a changed production file.
type Matcher struct {
	provider contracts.IChatAIProvider
	analyzer analyzer_contracts.ICodeAnalyzer
	logger   *slog.Logger
}

// NewMatcher creates a matcher. The analyzer is optional and only adds a declaration outline to the oracle prompt.
func NewMatcher(provider contracts.IChatAIProvider, analyzer analyzer_contracts.ICodeAnalyzer, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{provider: provider, analyzer: analyzer, logger: logger}
}

type oracleReply struct {
	TestFilePaths []string `json:"testFilePaths"`
}

// Stem returns the file name of p without directory and last extension.
func Stem(p string) string {
	base := path.Base(project_tree.CleanPath(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Match returns the heuristic matches of changedFile followed by the oracle's extra proposals that exist in tree.
// Test files never trigger discovery. The oracle is best effort: when it fails only heuristic matches are returned.
func (m *Matcher) Match(ctx context.Context, changedFile string, diffText string, tree *project_tree.ProjectTree) []models.TestCandidate {
	if project_tree.IsTestFile(changedFile) {
		m.logger.Debug("skipping test file", "file", changedFile)
		return nil
	}

	stem := Stem(changedFile)
	if stem == "" {
		m.logger.Debug("no stem to match", "file", changedFile)
		return nil
	}

	heuristic := tree.FindByStemExt(stem, path.Ext(changedFile))
	candidates := make([]models.TestCandidate, 0, len(heuristic))
	for _, testPath := range heuristic {
		candidates = append(candidates, models.TestCandidate{ProductionPath: changedFile, TestPath: testPath, DiffText: diffText})
	}
	m.logger.Debug("heuristic matches", "file", changedFile, "tests", heuristic)

	if m.provider == nil {
		return candidates
	}

	proposed, err := m.askOracle(ctx, changedFile, diffText, heuristic, tree)
	if err != nil {
		m.logger.Warn("oracle test discovery failed, keeping heuristic matches", "file", changedFile, "error", err)
		return candidates
	}

	for _, testPath := range proposed {
		testPath = project_tree.CleanPath(testPath)
		if testPath == changedFile {
			continue
		}
		if !tree.Exists(testPath) {
			m.logger.Debug("dropping oracle proposal missing from project tree", "file", changedFile, "proposal", testPath)
			continue
		}
		candidates = append(candidates, models.TestCandidate{ProductionPath: changedFile, TestPath: testPath, DiffText: diffText})
	}

	return candidates
}

func (m *Matcher) askOracle(ctx context.Context, changedFile, diffText string, found []string, tree *project_tree.ProjectTree) ([]string, error) {
	prompt, err := m.buildPrompt(changedFile, diffText, found, tree)
	if err != nil {
		return nil, err
	}

	response, err := m.provider.ChatCompletionRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}
	content, err := response.FirstContent()
	if err != nil {
		return nil, err
	}
	return ParseTestFilePaths(content)
}

func (m *Matcher) buildPrompt(changedFile, diffText string, found []string, tree *project_tree.ProjectTree) (string, error) {
	if found == nil {
		found = []string{}
	}
	foundJSON, err := json.Marshal(found)
	if err != nil {
		return "", fmt.Errorf("error marshalling found tests: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("## Project structure\n\n")
	prompt.WriteString(tree.String())
	prompt.WriteString(fmt.Sprintf("\n\n## Changed file\n\n%s\n\n", changedFile))
	prompt.WriteString(fmt.Sprintf("## Changes\n\n```diff\n%s\n```\n\n", diffText))
	if outline := m.outline(changedFile); len(outline) > 0 {
		prompt.WriteString(fmt.Sprintf("## Declarations in the changed file\n\n%s\n\n", strings.Join(outline, "\n")))
	}
	prompt.WriteString(fmt.Sprintf("## Test files already found\n\n%s\n\n", foundJSON))
	prompt.Write(embed_data.FindTestsPrompt)

	return prompt.String(), nil
}

func (m *Matcher) outline(changedFile string) []string {
	if m.analyzer == nil {
		return nil
	}
	source, err := m.analyzer.ReadSource(changedFile)
	if err != nil {
		return nil
	}
	return m.analyzer.Outline(changedFile, []byte(source.Code))
}

// ParseTestFilePaths reads the {"testFilePaths": [...]} object of an oracle reply.
// Code fences and text around the object are tolerated; "{}" means no paths.
func ParseTestFilePaths(content string) ([]string, error) {
	content = utils.StripCodeFences(content)
	start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply", providers_models.ErrMalformedResponse)
	}

	var reply oracleReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", providers_models.ErrMalformedResponse, err)
	}
	return reply.TestFilePaths, nil
}
