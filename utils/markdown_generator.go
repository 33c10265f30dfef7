package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const fence = "```"

// StripCodeFences removes a leading fence line, whatever its language tag, and a trailing fence line.
// Text without fences is returned trimmed.
func StripCodeFences(raw string) string {
	content := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if strings.HasPrefix(content, fence) {
		if newline := strings.IndexByte(content, '\n'); newline >= 0 {
			content = content[newline+1:]
		} else {
			content = ""
		}
	}
	trimmed := strings.TrimRight(content, " \t\n")
	if strings.HasSuffix(trimmed, fence) {
		lastLine := trimmed[strings.LastIndexByte(trimmed, '\n')+1:]
		if strings.TrimSpace(lastLine) == fence {
			content = strings.TrimSuffix(trimmed, lastLine)
		}
	}
	return strings.Trim(content, "\n")
}

// RenderCodeWithContext highlights content line by line with chroma, stopping when ctx is cancelled.
func RenderCodeWithContext(ctx context.Context, w io.Writer, content string, language string, theme string) error {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if i%5 == 0 {
			select {
			case <-ctx.Done():
				fmt.Fprintf(w, "\n\n🔄 Output interrupted...\n")
				return ctx.Err()
			default:
			}
		}

		var buf bytes.Buffer
		if err := quick.Highlight(&buf, line+"\n", strings.ToLower(language), "terminal256", theme); err != nil {
			return err
		}
		if _, err := io.Copy(w, &buf); err != nil {
			return err
		}
	}

	return nil
}
