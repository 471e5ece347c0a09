// Package extract turns file contents into graph nodes and edges. Each
// extractor is a pure function of (path, content) — it never touches the
// graph store, symbol table, or filesystem directly, so it can run
// concurrently across files without synchronization.
package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

// Node is a staged node awaiting insertion. QualifiedName is used as the
// local key edges reference before the orchestrator assigns a real NodeId.
type Node struct {
	graph.GraphNode
}

// Edge references its endpoints by qualified name rather than NodeId. Source
// and Target are resolved by the caller: first against the nodes produced in
// the same Result (local), then against the symbol table (cross-file), and
// left unresolved (dropped, or kept as metadata) if neither matches.
type Edge struct {
	Source     string
	Target     string
	Kind       graph.EdgeKind
	EdgeSource graph.EdgeSource
	Confidence float64
	Label      string
	Line       int
}

// Result is everything one file extraction produced.
type Result struct {
	Nodes []Node
	Edges []Edge
}

// Extractor maps one file's contents to graph nodes and edges.
type Extractor interface {
	Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error)
}

var (
	goExtractor          = &GoExtractor{}
	tsExtractor          = &TypeScriptExtractor{}
	pyExtractor          = &PythonExtractor{}
	rustExtractor        = &RustExtractor{}
	javaExtractor        = &JavaExtractor{}
	configExtractor      = &ConfigExtractor{}
	passthroughExtractor = &GenericExtractor{}
)

var registry = map[string]Extractor{
	".go":   goExtractor,
	".ts":   tsExtractor,
	".tsx":  tsExtractor,
	".js":   tsExtractor,
	".jsx":  tsExtractor,
	".mjs":  tsExtractor,
	".cjs":  tsExtractor,
	".py":   pyExtractor,
	".rs":   rustExtractor,
	".java": javaExtractor,
	".c":    cExtractor,
	".h":    cExtractor,
	".cpp":  cppExtractor,
	".cc":   cppExtractor,
	".cxx":  cppExtractor,
	".hpp":  cppExtractor,
	".hh":   cppExtractor,
	".yml":  configExtractor,
	".yaml": configExtractor,
}

// For returns the extractor responsible for path. It never returns nil: an
// unrecognized extension routes to the generic pass-through extractor, and
// dotenv files are recognized by basename rather than extension.
func For(path string) Extractor {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".env") {
		return configExtractor
	}
	ext := filepath.Ext(path)
	if e, ok := registry[ext]; ok {
		return e
	}
	return passthroughExtractor
}

// IsMigrationPath reports whether path lives under a directory conventionally
// used for ordered schema migrations.
func IsMigrationPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "migrations" || part == "migrate" {
			return true
		}
	}
	return false
}

func nodeContent(source []byte, n *sitter.Node) string {
	return string(source[n.StartByte():n.EndByte()])
}

func computeBodyHash(source []byte, n *sitter.Node) string {
	h := sha256.Sum256(source[n.StartByte():n.EndByte()])
	return fmt.Sprintf("%x", h)
}

func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		if c.Type() == nodeType {
			return c
		}
	}
	return nil
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func qualify(path, name string) string {
	return path + "::" + name
}
