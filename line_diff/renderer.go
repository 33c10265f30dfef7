package line_diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Kind classifies one rendered line.
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "context"
	}
}

// Line is one entry of a LineDiff.
type Line struct {
	Kind Kind
	Text string
}

// LineDiff is the ordered line-level difference between two texts.
type LineDiff []Line

// Counts returns the number of added and removed lines.
func (d LineDiff) Counts() (added int, removed int) {
	for _, l := range d {
		switch l.Kind {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	return added, removed
}

// Render computes an LCS-based line diff of oldText against newText.
// Time and memory are O(m*n); meant for single files.
func Render(oldText string, newText string) LineDiff {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)
	matches := longestCommonSubsequence(oldLines, newLines)

	result := make(LineDiff, 0, len(oldLines)+len(newLines)-len(matches))
	oi, ni := 0, 0
	for _, match := range matches {
		for ; oi < match.old; oi++ {
			result = append(result, Line{Kind: Removed, Text: oldLines[oi]})
		}
		for ; ni < match.new; ni++ {
			result = append(result, Line{Kind: Added, Text: newLines[ni]})
		}
		result = append(result, Line{Kind: Context, Text: oldLines[oi]})
		oi++
		ni++
	}
	for ; oi < len(oldLines); oi++ {
		result = append(result, Line{Kind: Removed, Text: oldLines[oi]})
	}
	for ; ni < len(newLines); ni++ {
		result = append(result, Line{Kind: Added, Text: newLines[ni]})
	}
	return result
}

type pair struct {
	old int
	new int
}

// longestCommonSubsequence fills the (m+1)x(n+1) table and backtracks from dp[m][n],
// returning the matched index pairs in order. On a tie it steps back along the new text first.
func longestCommonSubsequence(a []string, b []string) []pair {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	matches := make([]pair, dp[m][n])
	k := len(matches) - 1
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			matches[k] = pair{old: i - 1, new: j - 1}
			k--
			i--
			j--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return matches
}

// splitLines normalises CRLF; an empty text has no lines and one trailing newline adds no empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// Unified renders a classic unified patch (---/+++ headers, @@ hunks) for a file replaced by newText.
func Unified(oldName string, newName string, oldText string, newText string, context int) (string, error) {
	if context <= 0 {
		context = 3
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.ReplaceAll(oldText, "\r\n", "\n")),
		B:        difflib.SplitLines(strings.ReplaceAll(newText, "\r\n", "\n")),
		FromFile: oldName,
		ToFile:   newName,
		Context:  context,
	})
}
