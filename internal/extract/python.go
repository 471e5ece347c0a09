package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*PythonExtractor)(nil)

// PythonExtractor extracts functions, classes, methods, imports, and call
// edges from a Python source file.
type PythonExtractor struct{}

func (e *PythonExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	tree, err := pool.ParseBlocking(ctx, python.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("extract python %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.walkTopLevel(content, root, path, "", res)
	e.extractImports(content, root, path, res)
	e.extractContains(path, res)
	e.extractCalls(content, root, res)

	return res, nil
}

func (e *PythonExtractor) walkTopLevel(source []byte, node *sitter.Node, path, parent string, res *Result) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			e.extractFunction(source, child, path, parent, res)
		case "class_definition":
			e.extractClass(source, child, path, res)
		}
	}
}

func (e *PythonExtractor) extractFunction(source []byte, node *sitter.Node, path, parent string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	kind := graph.KindFunction
	qname := name
	if parent != "" {
		kind = graph.KindMethod
		qname = parent + "." + name
	}
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualify(path, qname),
		FilePath:      path,
		Language:      "python",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"receiver": parent, "bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *PythonExtractor) extractClass(source []byte, node *sitter.Node, path string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindClass,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      "python",
		IsContainer:   true,
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		for i := 0; i < int(superclasses.NamedChildCount()); i++ {
			arg := superclasses.NamedChild(i)
			if arg.Type() == "identifier" {
				res.Edges = append(res.Edges, Edge{
					Source:     qualify(path, name),
					Target:     nodeContent(source, arg),
					Kind:       graph.EdgeInherits,
					EdgeSource: graph.SourceStructural,
					Confidence: 1.0,
					Line:       int(superclasses.StartPoint().Row) + 1,
				})
			}
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if child := body.NamedChild(i); child.Type() == "function_definition" {
			e.extractFunction(source, child, path, name, res)
		}
	}
}

func (e *PythonExtractor) extractImports(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				name := child.NamedChild(j)
				if name.Type() == "dotted_name" {
					res.Edges = append(res.Edges, Edge{
						Source:     path,
						Target:     nodeContent(source, name),
						Kind:       graph.EdgeImports,
						EdgeSource: graph.SourceHeuristic,
						Confidence: 0.7,
						Line:       int(child.StartPoint().Row) + 1,
					})
				}
			}
		case "import_from_statement":
			moduleNode := child.ChildByFieldName("module_name")
			if moduleNode != nil {
				res.Edges = append(res.Edges, Edge{
					Source:     path,
					Target:     nodeContent(source, moduleNode),
					Kind:       graph.EdgeImports,
					EdgeSource: graph.SourceHeuristic,
					Confidence: 0.7,
					Line:       int(child.StartPoint().Row) + 1,
				})
			}
		}
	}
}

func (e *PythonExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		switch n.Kind {
		case graph.KindFunction, graph.KindClass:
			res.Edges = append(res.Edges, Edge{
				Source:     path,
				Target:     n.QualifiedName,
				Kind:       graph.EdgeContains,
				EdgeSource: graph.SourceStructural,
				Confidence: 1.0,
				Line:       n.LineStart,
			})
		case graph.KindMethod:
			receiver := n.Metadata["receiver"]
			if receiver != "" {
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

func (e *PythonExtractor) extractCalls(source []byte, root *sitter.Node, res *Result) {
	for _, n := range res.Nodes {
		if n.Kind != graph.KindFunction && n.Kind != graph.KindMethod {
			continue
		}
		decl := pyFindDeclAtLine(root, n.LineStart-1)
		if decl == nil {
			continue
		}
		body := decl.ChildByFieldName("body")
		if body == nil {
			continue
		}
		e.collectCalls(source, body, n.QualifiedName, res)
	}
}

func (e *PythonExtractor) collectCalls(source []byte, node *sitter.Node, callerQName string, res *Result) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "function_definition" {
			continue
		}
		if child.Type() == "call" {
			if fn := child.ChildByFieldName("function"); fn != nil {
				if name := pyCalleeName(source, fn); name != "" {
					res.Edges = append(res.Edges, Edge{
						Source:     callerQName,
						Target:     name,
						Kind:       graph.EdgeCalls,
						EdgeSource: graph.SourceHeuristic,
						Confidence: 0.8,
						Line:       int(child.StartPoint().Row) + 1,
					})
				}
			}
		}
		e.collectCalls(source, child, callerQName, res)
	}
}

func pyCalleeName(source []byte, node *sitter.Node) string {
	switch node.Type() {
	case "identifier", "attribute":
		return nodeContent(source, node)
	default:
		return ""
	}
}

func pyFindDeclAtLine(root *sitter.Node, row int) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if (n.Type() == "function_definition") && int(n.StartPoint().Row) == row {
			found = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return found
}
