package history

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codecoevoer/coevoer/history/contracts"
	"github.com/codecoevoer/coevoer/history/models"
	"github.com/zeebo/xxh3"
)

// DefaultDirName is the history directory created under the working directory when none is configured.
const DefaultDirName = ".coevoer-history"

const entryExt = ".gob"

// ErrNotFound is returned by Get when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// Store keeps regenerated tests as one gob file per entry.
type Store struct {
	dir   string
	mutex sync.RWMutex
}

// NewStore opens the history directory, creating it when needed.
// If dir is empty, it defaults to DefaultDirName in the current working directory.
func NewStore(dir string) (contracts.IHistoryStore, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(cwd, DefaultDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// EntryID derives a stable id from a commit and a test path, so running a commit again replaces its entries.
func EntryID(commitHash, testPath string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(commitHash+"\x00"+testPath))
}

func (s *Store) entryPath(id string) string {
	return filepath.Join(s.dir, id+entryExt)
}

// Save writes an entry, filling in its id and creation time when missing.
func (s *Store) Save(entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = EntryID(entry.CommitHash, entry.TestPath)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.WriteFile(s.entryPath(entry.ID), buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

func readEntry(path string) (*models.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry models.Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &entry, nil
}

type storedEntry struct {
	entry *models.Entry
	path  string
	size  int64
}

// scan reads every entry, oldest first. Undecodable files are skipped.
func (s *Store) scan() ([]storedEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var entries []storedEntry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != entryExt {
			continue
		}
		path := filepath.Join(s.dir, file.Name())
		entry, err := readEntry(path)
		if err != nil {
			continue
		}
		var size int64
		if info, err := file.Info(); err == nil {
			size = info.Size()
		}
		entries = append(entries, storedEntry{entry: entry, path: path, size: size})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].entry.CreatedAt.Before(entries[j].entry.CreatedAt)
	})
	return entries, nil
}

// List returns every entry, oldest first.
func (s *Store) List() ([]models.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored, err := s.scan()
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(stored))
	for _, e := range stored {
		entries = append(entries, *e.entry)
	}
	return entries, nil
}

// Get finds an entry by id or by an unambiguous id prefix.
func (s *Store) Get(id string) (*models.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if entry, err := readEntry(s.entryPath(id)); err == nil {
		return entry, nil
	}

	stored, err := s.scan()
	if err != nil {
		return nil, err
	}
	var found *models.Entry
	for _, e := range stored {
		if id == "" || !strings.HasPrefix(e.entry.ID, id) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("history id prefix %q is ambiguous", id)
		}
		found = e.entry
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear() (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	var deletedCount int
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != entryExt {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, file.Name())); err == nil {
			deletedCount++
		}
	}
	return deletedCount, nil
}

// Stats counts entries and their size on disk.
func (s *Store) Stats() (models.Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored, err := s.scan()
	if err != nil {
		return models.Stats{}, err
	}

	stats := models.Stats{Entries: len(stored)}
	for _, e := range stored {
		stats.TotalSizeBytes += e.size
	}
	if len(stored) > 0 {
		stats.Oldest = stored[0].entry.CreatedAt
		stats.Newest = stored[len(stored)-1].entry.CreatedAt
	}
	return stats, nil
}

// Prune drops entries older than MaxAge, then the oldest ones beyond MaxEntries.
// It returns the number of entries removed, or that would be removed on a dry run.
func (s *Store) Prune(options models.PruneOptions) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored, err := s.scan()
	if err != nil {
		return 0, err
	}

	var cutoff time.Time
	if options.MaxAge > 0 {
		cutoff = time.Now().Add(-options.MaxAge)
	}

	var doomed, kept []storedEntry
	for _, e := range stored {
		if !cutoff.IsZero() && e.entry.CreatedAt.Before(cutoff) {
			doomed = append(doomed, e)
		} else {
			kept = append(kept, e)
		}
	}
	if options.MaxEntries > 0 && len(kept) > options.MaxEntries {
		excess := len(kept) - options.MaxEntries
		doomed = append(doomed, kept[:excess]...)
	}

	if options.DryRun {
		return len(doomed), nil
	}

	var deletedCount int
	for _, e := range doomed {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return deletedCount, fmt.Errorf("failed to delete history entry: %w", err)
		}
		deletedCount++
	}
	return deletedCount, nil
}
