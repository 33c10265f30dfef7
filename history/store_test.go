package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codecoevoer/coevoer/history/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "history")
	store, err := NewStore(dir)
	require.NoError(t, err)
	return store.(*Store), dir
}

func entryAt(commit, testPath string, createdAt time.Time) *models.Entry {
	return &models.Entry{
		CommitHash:     commit,
		ProductionPath: "src/Foo.java",
		TestPath:       testPath,
		Content:        "class FooTest {}",
		CreatedAt:      createdAt,
	}
}

func TestStore_SaveListGet(t *testing.T) {
	store, dir := newTestStore(t)
	now := time.Now()

	second := entryAt("c2", "src/BarTest.java", now)
	first := entryAt("c1", "src/FooTest.java", now.Add(-time.Minute))
	require.NoError(t, store.Save(second))
	require.NoError(t, store.Save(first))

	assert.Equal(t, EntryID("c1", "src/FooTest.java"), first.ID)
	assert.FileExists(t, filepath.Join(dir, first.ID+".gob"))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "src/FooTest.java", entries[0].TestPath)
	assert.Equal(t, "src/BarTest.java", entries[1].TestPath)

	got, err := store.Get(second.ID[:6])
	require.NoError(t, err)
	assert.Equal(t, "c2", got.CommitHash)
	assert.Equal(t, "class FooTest {}", got.Content)
}

func TestStore_SaveSameCommitAndTestReplaces(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(entryAt("c1", "src/FooTest.java", time.Time{})))
	replacement := entryAt("c1", "src/FooTest.java", time.Time{})
	replacement.Content = "class FooTest { void b() {} }"
	require.NoError(t, store.Save(replacement))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, replacement.Content, entries[0].Content)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get("deadbeef")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ClearAndStats(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Save(entryAt("c1", "a", time.Now())))
	require.NoError(t, store.Save(entryAt("c1", "b", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSizeBytes)

	deleted, err := store.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestStore_SkipsCorruptedFiles(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Save(entryAt("c1", "a", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.gob"), []byte("not gob"), 0644))

	entries, err := store.List()

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Prune(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Now()
	require.NoError(t, store.Save(entryAt("old", "a", now.Add(-48*time.Hour))))
	require.NoError(t, store.Save(entryAt("c1", "b", now.Add(-3*time.Minute))))
	require.NoError(t, store.Save(entryAt("c2", "c", now.Add(-2*time.Minute))))
	require.NoError(t, store.Save(entryAt("c3", "d", now.Add(-time.Minute))))

	options := models.PruneOptions{MaxAge: 24 * time.Hour, MaxEntries: 2, DryRun: true}
	wouldDelete, err := store.Prune(options)
	require.NoError(t, err)
	assert.Equal(t, 2, wouldDelete)

	options.DryRun = false
	deleted, err := store.Prune(options)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c2", entries[0].CommitHash)
	assert.Equal(t, "c3", entries[1].CommitHash)
}
