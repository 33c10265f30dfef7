package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDefaultIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".git/HEAD", true},
		{"web/node_modules/react/index.js", true},
		{"dist/app.js", true},
		{"package.json", true},
		{"Cargo.lock", true},
		{"src/output.go", false},
		{"src/binary/Reader.java", false},
		{"src/main/Foo.java", false},
		{"build/generated/Foo.java", true},
		{"target", true},
		{"src/main/java/com/acme/build/Foo.java", false},
		{"service/vendor/Client.go", false},
		{"src/out/Writer.java", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDefaultIgnored(tt.path))
		})
	}
}

func TestIsIgnored(t *testing.T) {
	patterns := []string{"generated/", "*.txt", "docs/api/*.md"}

	assert.True(t, IsIgnored("generated", patterns))
	assert.True(t, IsIgnored("generated/Gen.java", patterns))
	assert.True(t, IsIgnored("deep/notes.txt", patterns))
	assert.True(t, IsIgnored("docs/api/index.md", patterns))
	assert.False(t, IsIgnored("docs/guide.md", patterns))
	assert.False(t, IsIgnored("src/generated.go", patterns))
}

func TestGetIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	ClearIgnoreCache()

	patterns, err := GetIgnorePatterns(root)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("# comment\n\nbuild-cache/\n*.gen.go\n"), 0644))

	patterns, err = GetIgnorePatterns(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"build-cache/", "*.gen.go"}, patterns)
}

func TestGetSupportedLanguage(t *testing.T) {
	assert.Equal(t, "java", GetSupportedLanguage("src/Foo.java"))
	assert.Equal(t, "typescript", GetSupportedLanguage("web/App.TSX"))
	assert.Equal(t, "", GetSupportedLanguage("Makefile"))
}
