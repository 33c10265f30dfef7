package utils

import (
	"path"
	"strings"
)

var languageByExtension = map[string]string{
	".go":    "go",
	".java":  "java",
	".kt":    "kotlin",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".cs":    "csharp",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
}

// GetSupportedLanguage maps a file path to a language name by extension, or "" when unknown.
func GetSupportedLanguage(filePath string) string {
	return languageByExtension[strings.ToLower(path.Ext(filePath))]
}
