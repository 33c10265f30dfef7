package models

// SourceFile holds the content of one project file read for a pipeline run.
type SourceFile struct {
	RelativePath string
	Code         string
	Language     string
}
