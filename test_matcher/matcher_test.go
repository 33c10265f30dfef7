package test_matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/codecoevoer/coevoer/pipeline/models"
	"github.com/codecoevoer/coevoer/project_tree"
	providers_models "github.com/codecoevoer/coevoer/providers/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeOracle) ChatCompletionRequest(_ context.Context, prompt string) (*providers_models.ChatCompletionResponse, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return providers_models.NewTextResponse("fake", f.reply, providers_models.Usage{}), nil
}

func mustTree(t *testing.T, paths ...string) *project_tree.ProjectTree {
	t.Helper()
	tree, err := project_tree.FromPaths(paths...)
	require.NoError(t, err)
	return tree
}

func testPaths(candidates []models.TestCandidate) []string {
	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.TestPath)
	}
	return paths
}

func TestMatch_HeuristicSiblingTest(t *testing.T) {
	oracle := &fakeOracle{reply: "{}"}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "Foo.java", "diff", mustTree(t, "Foo.java", "FooTest.java"))

	assert.Equal(t, []models.TestCandidate{{ProductionPath: "Foo.java", TestPath: "FooTest.java", DiffText: "diff"}}, got)
	require.Len(t, oracle.prompts, 1)
	assert.Contains(t, oracle.prompts[0], `["FooTest.java"]`)
	assert.Contains(t, oracle.prompts[0], "testFilePaths")
}

func TestMatch_DropsHallucinatedOracleProposal(t *testing.T) {
	oracle := &fakeOracle{reply: `{"testFilePaths": ["FooIT.java"]}`}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "Foo.java", "diff", mustTree(t, "Foo.java"))

	assert.Empty(t, got)
}

func TestMatch_AppendsExistingOracleProposals(t *testing.T) {
	tree := mustTree(t,
		"src/main/java/Conekta.java",
		"src/test/java/ConektaTest.java",
		"src/test/java/ConektaBase.java",
		"src/test/java/ChargeSuite.java",
	)
	oracle := &fakeOracle{reply: "```json\n{\"testFilePaths\": [\"src/test/java/ConektaBase.java\", \"./src/test/java/ChargeSuite.java\", \"src/test/java/Ghost.java\"]}\n```"}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "src/main/java/Conekta.java", "d", tree)

	assert.Equal(t, []string{
		"src/test/java/ConektaTest.java",
		"src/test/java/ConektaBase.java",
		"src/test/java/ChargeSuite.java",
	}, testPaths(got))
	for _, c := range got {
		assert.True(t, tree.Exists(c.TestPath))
		assert.Equal(t, "src/main/java/Conekta.java", c.ProductionPath)
		assert.Equal(t, "d", c.DiffText)
	}
}

func TestMatch_KeepsDuplicateProposals(t *testing.T) {
	oracle := &fakeOracle{reply: `{"testFilePaths": ["FooTest.java"]}`}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "Foo.java", "", mustTree(t, "Foo.java", "FooTest.java"))

	assert.Equal(t, []string{"FooTest.java", "FooTest.java"}, testPaths(got))
}

func TestMatch_OracleFailureKeepsHeuristicMatches(t *testing.T) {
	tree := mustTree(t, "Foo.java", "FooTest.java")

	for name, oracle := range map[string]*fakeOracle{
		"transport error": {err: errors.New("connection refused")},
		"not json":        {reply: "I think FooIT.java"},
		"broken json":     {reply: `{"testFilePaths": [`},
	} {
		t.Run(name, func(t *testing.T) {
			got := NewMatcher(oracle, nil, nil).Match(t.Context(), "Foo.java", "", tree)

			assert.Equal(t, []string{"FooTest.java"}, testPaths(got))
		})
	}
}

func TestMatch_SkipsTestFiles(t *testing.T) {
	oracle := &fakeOracle{reply: "{}"}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "src/test/java/FooTest.java", "", mustTree(t, "src/test/java/FooTest.java"))

	assert.Empty(t, got)
	assert.Empty(t, oracle.prompts)
}

func TestMatch_ExcludesChangedFileItself(t *testing.T) {
	oracle := &fakeOracle{reply: `{"testFilePaths": ["lib/spec.ts"]}`}
	matcher := NewMatcher(oracle, nil, nil)

	got := matcher.Match(t.Context(), "lib/spec.ts", "", mustTree(t, "lib/spec.ts", "lib/spec.test.ts"))

	assert.Empty(t, got, "spec.ts is a test file by name, so it is skipped")

	got = matcher.Match(t.Context(), "lib/Parser.ts", "", mustTree(t, "lib/Parser.ts", "lib/Parser.spec.ts"))
	assert.Equal(t, []string{"lib/Parser.spec.ts"}, testPaths(got))
}

func TestMatch_HeuristicPartIsIdempotent(t *testing.T) {
	tree := mustTree(t, "a/Bar.go", "a/BarTest.go", "b/bar_test.go")
	matcher := NewMatcher(nil, nil, nil)

	first := matcher.Match(t.Context(), "a/Bar.go", "", tree)
	second := matcher.Match(t.Context(), "a/Bar.go", "", tree)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a/BarTest.go", "b/bar_test.go"}, testPaths(first))
}

func TestParseTestFilePaths(t *testing.T) {
	paths, err := ParseTestFilePaths("{}")
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = ParseTestFilePaths("Here you go:\n{\"testFilePaths\": [\"a/B.java\"]}\nThanks")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/B.java"}, paths)

	_, err = ParseTestFilePaths("")
	assert.ErrorIs(t, err, providers_models.ErrMalformedResponse)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "Foo", Stem("src/main/Foo.java"))
	assert.Equal(t, "foo.service", Stem("web/foo.service.ts"))
	assert.Equal(t, "Makefile", Stem("Makefile"))
	assert.Equal(t, "", Stem(".gitignore"))
}
