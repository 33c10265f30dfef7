package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// IgnoreFileName holds extra ignore patterns for the project walk, one per line.
const IgnoreFileName = ".coevoer-ignore"

// ignoreCacheEntry holds cached ignore patterns with metadata
type ignoreCacheEntry struct {
	patterns []string
	modTime  time.Time
}

var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// Entry names that never enter a project tree, at any depth: vcs and editor state, dependency folders,
// lockfiles and project metadata.
var defaultIgnoredNames = map[string]struct{}{
	".git":              {},
	".svn":              {},
	".hg":               {},
	".idea":             {},
	".vscode":           {},
	".cache":            {},
	"node_modules":      {},
	"__pycache__":       {},
	".gitignore":        {},
	".vscodeignore":     {},
	"package.json":      {},
	"tsconfig.json":     {},
	"README.md":         {},
	"CHANGELOG.md":      {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"go.sum":            {},
	"Cargo.lock":        {},
	"poetry.lock":       {},
	"Gemfile.lock":      {},
	"composer.lock":     {},
	IgnoreFileName:      {},
}

// Build output directories, excluded only at the project root. Deeper down these are ordinary
// package names, such as com/acme/build.
var rootIgnoredNames = map[string]struct{}{
	"vendor": {},
	"dist":   {},
	"out":    {},
	"bin":    {},
	"obj":    {},
	"target": {},
	"build":  {},
}

var defaultIgnoredSuffixes = []string{
	".lock", ".exe", ".dll", ".so", ".class", ".jar", ".log", ".tmp", ".bak",
	".png", ".jpg", ".jpeg", ".gif", ".mp3", ".mp4", ".wav", ".zip",
}

// GetIgnorePatterns reads the patterns of the project's ignore file.
// A missing file yields no patterns. Results are cached until the file's mod time changes.
func GetIgnorePatterns(cwd string) ([]string, error) {
	ignorePath := filepath.Join(cwd, IgnoreFileName)

	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", IgnoreFileName, err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return cached.patterns, nil
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{patterns: patterns, modTime: fileInfo.ModTime()}
	cacheMutex.Unlock()

	return patterns, nil
}

// IsDefaultIgnored reports whether a '/'-separated relative path is excluded by default.
func IsDefaultIgnored(relativePath string) bool {
	parts := strings.Split(strings.TrimPrefix(relativePath, "/"), "/")
	if _, ok := rootIgnoredNames[parts[0]]; ok {
		return true
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if _, ok := defaultIgnoredNames[part]; ok {
			return true
		}
		lower := strings.ToLower(part)
		for _, suffix := range defaultIgnoredSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
		}
	}
	return false
}

func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// IsIgnored checks a '/'-separated relative path against ignore patterns.
// A pattern matches the whole path, the entry name, or, with a trailing '/', a directory prefix.
func IsIgnored(relativePath string, patterns []string) bool {
	name := path.Base(relativePath)
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			if relativePath == dir || strings.HasPrefix(relativePath, pattern) {
				return true
			}
			continue
		}
		if match, _ := path.Match(pattern, relativePath); match {
			return true
		}
		if match, _ := path.Match(pattern, name); match {
			return true
		}
	}
	return false
}

// ClearIgnoreCache drops all cached ignore patterns.
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
