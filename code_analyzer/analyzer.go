package code_analyzer

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/codecoevoer/coevoer/code_analyzer/contracts"
	"github.com/codecoevoer/coevoer/code_analyzer/models"
	"github.com/codecoevoer/coevoer/embed_data"
	"github.com/codecoevoer/coevoer/project_tree"
	"github.com/codecoevoer/coevoer/utils"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DefaultProjectLanguage is reported when nothing in the project points to another language.
const DefaultProjectLanguage = "Java"

// CodeAnalyzer handles the analysis of project files.
type CodeAnalyzer struct {
	Cwd      string
	outlines *OutlineCache
	logger   *slog.Logger
}

// NewCodeAnalyzer initializes a new CodeAnalyzer rooted at cwd.
func NewCodeAnalyzer(cwd string, logger *slog.Logger) contracts.ICodeAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeAnalyzer{
		Cwd:      cwd,
		outlines: NewOutlineCache(),
		logger:   logger,
	}
}

// BuildProjectTree scans the analyzer's root honouring the project's ignore file.
func (analyzer *CodeAnalyzer) BuildProjectTree() (*project_tree.ProjectTree, error) {
	patterns, err := utils.GetIgnorePatterns(analyzer.Cwd)
	if err != nil {
		return nil, err
	}
	return BuildProjectTree(analyzer.Cwd, patterns)
}

// BuildProjectTree walks rootDir and returns a new tree of everything not excluded by default or by patterns.
// Entries are inserted in lexical order, which is the order filepath.WalkDir visits them.
func BuildProjectTree(rootDir string, patterns []string) (*project_tree.ProjectTree, error) {
	root := project_tree.NewDirectory("")
	dirs := map[string]*project_tree.Node{".": root}

	err := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		if relativePath == "." {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if utils.IsDefaultIgnored(relativePath) || utils.IsIgnored(relativePath, patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		parent, ok := dirs[path.Dir(relativePath)]
		if !ok {
			return fmt.Errorf("parent of %s was not scanned", relativePath)
		}

		var node *project_tree.Node
		if d.IsDir() {
			node = project_tree.NewDirectory(d.Name())
			dirs[relativePath] = node
		} else {
			node = project_tree.NewFile(d.Name())
		}
		return parent.Add(node)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project %s: %w", rootDir, err)
	}

	return project_tree.New(root), nil
}

// ReadSource reads a file relative to the analyzer's root.
func (analyzer *CodeAnalyzer) ReadSource(relativePath string) (*models.SourceFile, error) {
	content, err := os.ReadFile(filepath.Join(analyzer.Cwd, filepath.FromSlash(relativePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s, error: %w", relativePath, err)
	}
	return &models.SourceFile{
		RelativePath: relativePath,
		Code:         string(content),
		Language:     utils.GetSupportedLanguage(relativePath),
	}, nil
}

// Outline lists the declarations of a source file as "tag: name" lines, using tree-sitter queries.
// Languages without a grammar yield no outline.
func (analyzer *CodeAnalyzer) Outline(relativePath string, source []byte) []string {
	if cached, found := analyzer.outlines.Get(relativePath, source); found {
		return cached
	}
	outline := analyzer.processFile(relativePath, source)
	analyzer.outlines.Set(relativePath, source, outline)
	return outline
}

func (analyzer *CodeAnalyzer) processFile(relativePath string, sourceCode []byte) []string {
	var lang *sitter.Language
	var queryData []byte

	switch utils.GetSupportedLanguage(relativePath) {
	case "csharp":
		lang = csharp.GetLanguage()
		queryData = embed_data.CSharpQuery
	case "go":
		lang = golang.GetLanguage()
		queryData = embed_data.GoQuery
	case "python":
		lang = python.GetLanguage()
		queryData = embed_data.PythonQuery
	case "java":
		lang = java.GetLanguage()
		queryData = embed_data.JavaQuery
	case "javascript":
		lang = javascript.GetLanguage()
		queryData = embed_data.JavascriptQuery
	case "typescript":
		lang = typescript.GetLanguage()
		queryData = embed_data.TypescriptQuery
	default:
		return nil
	}

	queries := make(map[string]string)
	if err := json.Unmarshal(queryData, &queries); err != nil {
		analyzer.logger.Warn("failed to parse outline queries", "file", relativePath, "error", err)
		return nil
	}
	tags := make([]string, 0, len(queries))
	for tag := range queries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	tree := parser.Parse(nil, sourceCode)
	defer tree.Close()

	var elements []string
	for _, tag := range tags {
		query, err := sitter.NewQuery([]byte(queries[tag]), lang)
		if err != nil {
			analyzer.logger.Warn("failed to compile outline query", "file", relativePath, "tag", tag, "error", err)
			continue
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(query, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				elements = append(elements, fmt.Sprintf("%s: %s", tag, capture.Node.Content(sourceCode)))
			}
		}
		cursor.Close()
		query.Close()
	}

	return elements
}

var languageMarkers = []struct {
	file     string
	language string
}{
	{"pom.xml", "Java"},
	{"requirements.txt", "Python"},
	{"package.json", "JavaScript"},
	{"go.mod", "Go"},
}

// Histogram order also breaks ties: the earlier language wins.
var languageByExtension = []struct {
	language   string
	extensions []string
}{
	{"Java", []string{".java"}},
	{"Python", []string{".py"}},
	{"JavaScript", []string{".js", ".ts"}},
	{"C++", []string{".cpp", ".cc"}},
	{"C#", []string{".cs"}},
	{"Go", []string{".go"}},
	{"Ruby", []string{".rb"}},
	{"Swift", []string{".swift"}},
	{"C", []string{".c"}},
}

// DetectProjectLanguage looks for build marker files in the root first, then picks the most frequent source extension.
func (analyzer *CodeAnalyzer) DetectProjectLanguage(tree *project_tree.ProjectTree) string {
	for _, marker := range languageMarkers {
		if _, err := os.Stat(filepath.Join(analyzer.Cwd, marker.file)); err == nil {
			return marker.language
		}
	}
	return DetectLanguageFromFiles(tree.Files())
}

// DetectLanguageFromFiles returns the language with the most files, or DefaultProjectLanguage.
func DetectLanguageFromFiles(files []string) string {
	counts := make(map[string]int)
	for _, file := range files {
		ext := path.Ext(file)
		for _, entry := range languageByExtension {
			for _, candidate := range entry.extensions {
				if ext == candidate {
					counts[entry.language]++
				}
			}
		}
	}

	best, bestCount := DefaultProjectLanguage, 0
	for _, entry := range languageByExtension {
		if counts[entry.language] > bestCount {
			best, bestCount = entry.language, counts[entry.language]
		}
	}
	return best
}
