package diff_extractor

import (
	"log/slog"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Delimiter precedes every file section of a git unified diff.
const Delimiter = "diff --git"

// Extract splits fullDiff into per-file sections aligned by index with files.
// A file without a matching section gets an empty string: renames, binary files and odd splits are not fatal.
func Extract(fullDiff string, files []string) []string {
	sections := strings.Split(fullDiff, Delimiter)
	if len(sections) > 0 {
		// Text before the first delimiter is never a file section.
		sections = sections[1:]
	}

	fileDiffs := make([]string, len(files))
	for i, file := range files {
		for _, section := range sections {
			if referencesPath(section, file) {
				fileDiffs[i] = Delimiter + section
				break
			}
		}
		if fileDiffs[i] == "" {
			slog.Debug("no diff section found for changed file", "file", file)
		}
	}
	return fileDiffs
}

// referencesPath reports whether the section header names path on its before (a/) or after (b/) side.
func referencesPath(section string, path string) bool {
	before, after := "a/"+path, "b/"+path

	lines := strings.Split(section, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if i == 0 {
			// Paths may contain spaces, so the header is matched at its ends rather than split into fields.
			rest := strings.TrimSpace(line)
			if strings.HasPrefix(rest, before+" b/") || strings.HasSuffix(rest, " "+after) {
				return true
			}
			continue
		}
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			// git appends a tab to these headers when the path contains a space.
			line = strings.TrimRight(line, "\t")
		}
		switch {
		case strings.HasPrefix(line, "@@"):
			// Headers end where the first hunk starts.
			return false
		case line == "--- "+before || line == "+++ "+after:
			return true
		case line == "rename from "+path || line == "rename to "+path:
			return true
		}
	}
	return false
}

// Stats counts added and deleted lines of one file section. Changed lines count on both sides.
func Stats(section string) (added int, deleted int) {
	if strings.TrimSpace(section) == "" {
		return 0, 0
	}
	fileDiff, err := godiff.ParseFileDiff([]byte(section))
	if err != nil {
		slog.Debug("cannot parse diff section for stats", "error", err)
		return 0, 0
	}
	stat := fileDiff.Stat()
	return int(stat.Added + stat.Changed), int(stat.Deleted + stat.Changed)
}
