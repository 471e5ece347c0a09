package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*CExtractor)(nil)

// CExtractor extracts functions, structs, enums, typedefs, and #include
// directives from C and C++ source. The two languages share enough grammar
// shape (struct/enum/typedef/preproc_include) that one extractor serves both,
// parameterized by which tree-sitter grammar to parse with.
type CExtractor struct {
	language string
	getLang  func() *sitter.Language
}

func (e *CExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	tree, err := pool.ParseBlocking(ctx, e.getLang(), content)
	if err != nil {
		return nil, fmt.Errorf("extract %s %s: %w", e.language, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.extractDecls(content, root, path, res)
	e.extractIncludes(content, root, path, res)
	e.extractContains(path, res)

	return res, nil
}

func (e *CExtractor) extractDecls(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			e.extractFunction(source, child, path, res)
		case "struct_specifier":
			e.extractNamed(source, child, path, graph.KindStruct, res)
		case "enum_specifier":
			e.extractNamed(source, child, path, graph.KindEnum, res)
		case "type_definition":
			e.extractTypedef(source, child, path, res)
		}
	}
}

func (e *CExtractor) extractFunction(source []byte, node *sitter.Node, path string, res *Result) {
	declarator := node.ChildByFieldName("declarator")
	nameNode := cFunctionName(declarator)
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindFunction,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      e.language,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

// cFunctionName walks nested pointer/function declarators to find the
// identifier naming the function, mirroring a recursive function_declarator
// search.
func cFunctionName(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier":
		return node
	case "function_declarator", "pointer_declarator":
		return cFunctionName(node.ChildByFieldName("declarator"))
	}
	return nil
}

func (e *CExtractor) extractNamed(source []byte, node *sitter.Node, path string, kind graph.NodeKind, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      e.language,
		IsContainer:   kind == graph.KindStruct,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *CExtractor) extractTypedef(source []byte, node *sitter.Node, path string, res *Result) {
	declarator := node.ChildByFieldName("declarator")
	if declarator == nil || declarator.Type() != "type_identifier" {
		return
	}
	name := nodeContent(source, declarator)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindTypeAlias,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      e.language,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *CExtractor) extractIncludes(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "preproc_include" {
			continue
		}
		pathNode := child.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		var target string
		switch pathNode.Type() {
		case "string_literal":
			target = stripQuotes(nodeContent(source, pathNode))
		case "system_lib_string":
			target = trimAngleBrackets(nodeContent(source, pathNode))
		}
		if target == "" {
			continue
		}
		res.Edges = append(res.Edges, Edge{
			Source:     path,
			Target:     target,
			Kind:       graph.EdgeImports,
			EdgeSource: graph.SourceHeuristic,
			Confidence: 0.5,
			Line:       int(child.StartPoint().Row) + 1,
		})
	}
}

func trimAngleBrackets(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

func (e *CExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		res.Edges = append(res.Edges, Edge{
			Source:     path,
			Target:     n.QualifiedName,
			Kind:       graph.EdgeContains,
			EdgeSource: graph.SourceStructural,
			Confidence: 1.0,
			Line:       n.LineStart,
		})
	}
}

var (
	cExtractor   = &CExtractor{language: "c", getLang: c.GetLanguage}
	cppExtractor = &CExtractor{language: "cpp", getLang: cpp.GetLanguage}
)
