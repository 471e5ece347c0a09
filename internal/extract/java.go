package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*JavaExtractor)(nil)

// JavaExtractor extracts classes, interfaces, their methods, and import
// declarations from a Java source file.
type JavaExtractor struct{}

func (e *JavaExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	tree, err := pool.ParseBlocking(ctx, java.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("extract java %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.extractTypes(content, root, path, res)
	e.extractImports(content, root, path, res)
	e.extractContains(path, res)

	return res, nil
}

func (e *JavaExtractor) extractTypes(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "class_declaration":
			e.extractType(source, child, path, graph.KindClass, res)
		case "interface_declaration":
			e.extractType(source, child, path, graph.KindInterface, res)
		}
	}
}

func (e *JavaExtractor) extractType(source []byte, node *sitter.Node, path string, kind graph.NodeKind, res *Result) {
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
		Language:      "java",
		IsContainer:   true,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() == "method_declaration" {
			e.extractMethod(source, member, path, name, res)
		}
	}
}

func (e *JavaExtractor) extractMethod(source []byte, node *sitter.Node, path, owner string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	qname := owner + "." + name
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindMethod,
		Name:          name,
		QualifiedName: qualify(path, qname),
		FilePath:      path,
		Language:      "java",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"receiver": owner, "bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *JavaExtractor) extractImports(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_declaration" {
			continue
		}
		var importPath string
		for j := 0; j < int(child.NamedChildCount()); j++ {
			part := child.NamedChild(j)
			if part.Type() == "scoped_identifier" || part.Type() == "identifier" {
				importPath = nodeContent(source, part)
			}
		}
		if importPath == "" {
			continue
		}
		res.Edges = append(res.Edges, Edge{
			Source:     path,
			Target:     importPath,
			Kind:       graph.EdgeImports,
			EdgeSource: graph.SourceHeuristic,
			Confidence: 0.7,
			Line:       int(child.StartPoint().Row) + 1,
		})
	}
}

func (e *JavaExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		switch n.Kind {
		case graph.KindClass, graph.KindInterface:
			res.Edges = append(res.Edges, Edge{
				Source:     path,
				Target:     n.QualifiedName,
				Kind:       graph.EdgeContains,
				EdgeSource: graph.SourceStructural,
				Confidence: 1.0,
				Line:       n.LineStart,
			})
		case graph.KindMethod:
			if receiver := n.Metadata["receiver"]; receiver != "" {
				res.Edges = append(res.Edges, Edge{
					Source:     qualify(path, receiver),
					Target:     n.QualifiedName,
					Kind:       graph.EdgeContains,
					EdgeSource: graph.SourceStructural,
					Confidence: 1.0,
					Line:       n.LineStart,
				})
			}
		}
	}
}
