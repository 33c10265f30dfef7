package presenter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codecoevoer/coevoer/history"
	"github.com/codecoevoer/coevoer/pipeline"
	"github.com/codecoevoer/coevoer/pipeline/models"
	providers_models "github.com/codecoevoer/coevoer/providers/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() pipeline.Event {
	return pipeline.Event{
		RunID:      "run-1",
		Commit:     &models.CommitChange{CommitHash: "0123456789abcdef", Message: "change a"},
		Candidate:  models.TestCandidate{ProductionPath: "src/Foo.java", TestPath: "src/FooTest.java"},
		Test:       models.RegeneratedTest{TestPath: "src/FooTest.java", Content: "class FooTest {\n  void b() {}\n}"},
		OldContent: "class FooTest {\n  void a() {}\n}",
	}
}

func TestPublish_PrintsDiffAndSavesHistory(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	var out bytes.Buffer
	presenter := NewConsolePresenter(ConsoleOptions{Out: &out, Store: store})

	require.NoError(t, presenter.Publish(t.Context(), sampleEvent()))

	printed := out.String()
	assert.Contains(t, printed, "src/FooTest.java needs an update")
	assert.Contains(t, printed, "0123456")
	assert.Contains(t, printed, "-   void a() {}")
	assert.Contains(t, printed, "+   void b() {}")
	assert.Contains(t, printed, "1 added, 1 removed")

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0123456789abcdef", entries[0].CommitHash)
	assert.Equal(t, "java", entries[0].Language)
	assert.Equal(t, "run-1", entries[0].RunID)
}

func TestPublish_ApplyWritesTestFile(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	presenter := NewConsolePresenter(ConsoleOptions{Out: &out, Root: root, Apply: true, AssumeYes: true})

	require.NoError(t, presenter.Publish(t.Context(), sampleEvent()))
	require.NoError(t, presenter.Close())

	written, err := os.ReadFile(filepath.Join(root, "src", "FooTest.java"))
	require.NoError(t, err)
	assert.Equal(t, "class FooTest {\n  void b() {}\n}\n", string(written))
	assert.Contains(t, out.String(), "1 regenerated test(s), 1 written")
}

func TestPublish_ApplyDeclined(t *testing.T) {
	root := t.TempDir()
	presenter := NewConsolePresenter(ConsoleOptions{
		Out:   &bytes.Buffer{},
		Root:  root,
		Apply: true,
		Input: bufio.NewReader(strings.NewReader("n\n")),
	})

	require.NoError(t, presenter.Publish(t.Context(), sampleEvent()))

	assert.NoFileExists(t, filepath.Join(root, "src", "FooTest.java"))
}

func TestClose_SilentWithoutEvents(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, NewConsolePresenter(ConsoleOptions{Out: &out}).Close())

	assert.Empty(t, out.String())
}

type stubProvider struct {
	err error
}

func (s stubProvider) ChatCompletionRequest(context.Context, string) (*providers_models.ChatCompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return providers_models.NewTextResponse("stub", "no", providers_models.Usage{}), nil
}

func TestSpinnerProvider_PassesThrough(t *testing.T) {
	response, err := NewSpinnerProvider(stubProvider{}, "openai").ChatCompletionRequest(t.Context(), "prompt")
	require.NoError(t, err)
	content, err := response.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "no", content)

	_, err = NewSpinnerProvider(stubProvider{err: errors.New("boom")}, "ollama").ChatCompletionRequest(t.Context(), "prompt")
	assert.EqualError(t, err, "boom")
}

func TestPublish_HeaderCarriesProductionDiffStats(t *testing.T) {
	event := sampleEvent()
	event.Candidate.DiffText = "diff --git a/src/Foo.java b/src/Foo.java\n" +
		"--- a/src/Foo.java\n" +
		"+++ b/src/Foo.java\n" +
		"@@ -1,3 +1,3 @@\n" +
		" class Foo {\n" +
		"-  int a;\n" +
		"+  int b;\n" +
		" }\n"
	var out bytes.Buffer

	require.NoError(t, NewConsolePresenter(ConsoleOptions{Out: &out}).Publish(t.Context(), event))

	assert.Contains(t, out.String(), "src/Foo.java: +1 -1")
}
