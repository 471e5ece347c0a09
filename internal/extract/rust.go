package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*RustExtractor)(nil)

// RustExtractor extracts free functions, structs, impl-block methods, and use
// declarations from a Rust source file.
type RustExtractor struct{}

func (e *RustExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	tree, err := pool.ParseBlocking(ctx, rust.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("extract rust %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.extractItems(content, root, path, res)
	e.extractUses(content, root, path, res)
	e.extractContains(path, res)

	return res, nil
}

func (e *RustExtractor) extractItems(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_item":
			e.extractFunction(source, child, path, "", res)
		case "struct_item":
			e.extractStruct(source, child, path, res)
		case "impl_item":
			e.extractImpl(source, child, path, res)
		}
	}
}

func (e *RustExtractor) extractFunction(source []byte, node *sitter.Node, path, receiver string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	qname := name
	kind := graph.KindFunction
	if receiver != "" {
		qname = receiver + "::" + name
		kind = graph.KindMethod
	}
	meta := map[string]string{"bodyHash": computeBodyHash(source, node)}
	if receiver != "" {
		meta["receiver"] = receiver
	}
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualify(path, qname),
		FilePath:      path,
		Language:      "rust",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      meta,
	}})
}

func (e *RustExtractor) extractStruct(source []byte, node *sitter.Node, path string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindStruct,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      "rust",
		IsContainer:   true,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *RustExtractor) extractImpl(source []byte, node *sitter.Node, path string, res *Result) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	receiver := nodeContent(source, typeNode)
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() == "function_item" {
			e.extractFunction(source, child, path, receiver, res)
		}
	}
}

func (e *RustExtractor) extractUses(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "use_declaration" {
			continue
		}
		arg := child.ChildByFieldName("argument")
		if arg == nil {
			continue
		}
		if target := rustUsePath(source, arg); target != "" {
			res.Edges = append(res.Edges, Edge{
				Source:     path,
				Target:     target,
				Kind:       graph.EdgeImports,
				EdgeSource: graph.SourceHeuristic,
				Confidence: 0.7,
				Line:       int(child.StartPoint().Row) + 1,
			})
		}
	}
}

// rustUsePath renders the `use` argument back to a path string, following the
// original indexer's handling of scoped identifiers, wildcards, and groups.
func rustUsePath(source []byte, node *sitter.Node) string {
	switch node.Type() {
	case "scoped_identifier", "identifier":
		return nodeContent(source, node)
	case "use_wildcard":
		if path := node.ChildByFieldName("path"); path != nil {
			return nodeContent(source, path) + "::*"
		}
		return nodeContent(source, node)
	case "use_as_clause":
		if path := node.NamedChild(0); path != nil {
			return rustUsePath(source, path)
		}
	}
	return nodeContent(source, node)
}

func (e *RustExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		switch n.Kind {
		case graph.KindFunction, graph.KindStruct:
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
