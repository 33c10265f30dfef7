package project_tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultSourceExt is the extension FindByStem excludes when the caller does not know the changed file's extension.
const DefaultSourceExt = "java"

var testIndicators = []string{"test", "spec", "__tests__"}

// Kind tells a file entry from a directory entry.
type Kind int

const (
	File Kind = iota
	Directory
)

// Node is one entry of a project tree: a file, or a directory holding ordered children.
type Node struct {
	Name string
	Kind Kind

	children []*Node
	index    map[string]int
}

// ProjectTree is the root directory of a scanned project.
type ProjectTree struct {
	root *Node
}

// NewDirectory creates an empty directory node.
func NewDirectory(name string) *Node {
	return &Node{Name: name, Kind: Directory, index: make(map[string]int)}
}

// NewFile creates a file node.
func NewFile(name string) *Node {
	return &Node{Name: name, Kind: File}
}

// Add appends child to the directory. Names are unique per level, so a second child with the same name is rejected.
func (n *Node) Add(child *Node) error {
	if n.Kind != Directory {
		return fmt.Errorf("cannot add %q to file %q", child.Name, n.Name)
	}
	if _, exists := n.index[child.Name]; exists {
		return fmt.Errorf("duplicate entry %q in directory %q", child.Name, n.Name)
	}
	n.index[child.Name] = len(n.children)
	n.children = append(n.children, child)
	return nil
}

// Children returns the entries of a directory in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) child(name string) (*Node, bool) {
	if n.Kind != Directory {
		return nil, false
	}
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// New wraps a root directory node into a ProjectTree. The tree must not be mutated afterwards.
func New(root *Node) *ProjectTree {
	if root == nil {
		root = NewDirectory("")
	}
	return &ProjectTree{root: root}
}

// FromPaths builds a tree from '/'-separated file paths, creating directories on the way in first-seen order.
func FromPaths(paths ...string) (*ProjectTree, error) {
	root := NewDirectory("")
	for _, p := range paths {
		segments := strings.Split(strings.Trim(p, "/"), "/")
		current := root
		for i, segment := range segments {
			last := i == len(segments)-1
			if existing, ok := current.child(segment); ok {
				if last || existing.Kind != Directory {
					return nil, fmt.Errorf("path %q collides with an existing entry", p)
				}
				current = existing
				continue
			}
			var next *Node
			if last {
				next = NewFile(segment)
			} else {
				next = NewDirectory(segment)
			}
			if err := current.Add(next); err != nil {
				return nil, err
			}
			current = next
		}
	}
	return New(root), nil
}

// Root returns the root directory node.
func (t *ProjectTree) Root() *Node {
	return t.root
}

// IsTestFile reports whether a file name or path carries one of the test indicators.
func IsTestFile(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range testIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// CleanPath turns backslashes into '/' and drops a leading "./".
func CleanPath(path string) string {
	return strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(path), "\\", "/"), "./")
}

// Exists walks every '/'-separated segment of path from the root.
// It does not check whether the final entry is a file or a directory.
func (t *ProjectTree) Exists(path string) bool {
	path = CleanPath(path)
	if path == "" {
		return false
	}
	current := t.root
	for _, segment := range strings.Split(path, "/") {
		next, ok := current.child(segment)
		if !ok {
			return false
		}
		current = next
	}
	return true
}

// FindByStem is FindByStemExt with the default source extension.
func (t *ProjectTree) FindByStem(stem string) []string {
	return t.FindByStemExt(stem, DefaultSourceExt)
}

// FindByStemExt returns, in pre-order, the paths of test files whose name contains stem.
// A file named exactly stem + "." + sourceExt is never returned.
func (t *ProjectTree) FindByStemExt(stem string, sourceExt string) []string {
	lowerStem := strings.ToLower(stem)
	self := lowerStem + "." + strings.ToLower(strings.TrimPrefix(sourceExt, "."))

	var matches []string
	var walk func(dir *Node, prefix string)
	walk = func(dir *Node, prefix string) {
		for _, entry := range dir.children {
			fullPath := entry.Name
			if prefix != "" {
				fullPath = prefix + "/" + entry.Name
			}
			if entry.Kind == Directory {
				walk(entry, fullPath)
				continue
			}
			lowerName := strings.ToLower(entry.Name)
			if strings.Contains(lowerName, lowerStem) && IsTestFile(lowerName) && lowerName != self {
				matches = append(matches, fullPath)
			}
		}
	}
	walk(t.root, "")
	return matches
}

// Files returns every file path in pre-order.
func (t *ProjectTree) Files() []string {
	var files []string
	var walk func(dir *Node, prefix string)
	walk = func(dir *Node, prefix string) {
		for _, entry := range dir.children {
			fullPath := entry.Name
			if prefix != "" {
				fullPath = prefix + "/" + entry.Name
			}
			if entry.Kind == Directory {
				walk(entry, fullPath)
			} else {
				files = append(files, fullPath)
			}
		}
	}
	walk(t.root, "")
	return files
}

// MarshalJSON encodes the tree as nested objects where files map to null, keeping insertion order.
func (t *ProjectTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDirectory(&buf, t.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDirectory(buf *bytes.Buffer, dir *Node) error {
	buf.WriteByte('{')
	for i, entry := range dir.children {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(entry.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if entry.Kind == File {
			buf.WriteString("null")
			continue
		}
		if err := writeDirectory(buf, entry); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// String returns the indented JSON form used in oracle prompts.
func (t *ProjectTree) String() string {
	raw, err := t.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
