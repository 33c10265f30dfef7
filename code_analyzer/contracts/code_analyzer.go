package contracts

import (
	"github.com/codecoevoer/coevoer/code_analyzer/models"
	"github.com/codecoevoer/coevoer/project_tree"
)

// ICodeAnalyzer is the file-system side of a pipeline run.
type ICodeAnalyzer interface {
	BuildProjectTree() (*project_tree.ProjectTree, error)
	ReadSource(relativePath string) (*models.SourceFile, error)
	Outline(relativePath string, source []byte) []string
	DetectProjectLanguage(tree *project_tree.ProjectTree) string
}
