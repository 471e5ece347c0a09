package extract

import (
	"context"
	"fmt"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*TypeScriptExtractor)(nil)

// TypeScriptExtractor handles TypeScript, TSX, JavaScript, and JSX sources —
// they share enough grammar shape (classes, functions, ES module imports)
// that one walker serves all four.
type TypeScriptExtractor struct{}

func (e *TypeScriptExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	lang, err := languageForExt(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	tree, err := pool.ParseBlocking(ctx, lang, content)
	if err != nil {
		return nil, fmt.Errorf("extract ts %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.walkTopLevel(content, root, path, "", res)
	e.extractImports(content, root, path, res)
	e.extractContains(path, res)
	e.extractHeritage(content, root, res)
	e.extractCalls(content, root, res)

	return res, nil
}

func languageForExt(ext string) (*sitter.Language, error) {
	switch ext {
	case ".ts":
		return typescript.GetLanguage(), nil
	case ".tsx", ".jsx":
		return tsx.GetLanguage(), nil
	case ".js", ".mjs", ".cjs":
		return javascript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported extension: %s", ext)
	}
}

func (e *TypeScriptExtractor) walkTopLevel(source []byte, node *sitter.Node, path, parent string, res *Result) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.extractNode(source, node.NamedChild(i), path, parent, res)
	}
}

func (e *TypeScriptExtractor) extractNode(source []byte, node *sitter.Node, path, parent string, res *Result) {
	switch node.Type() {
	case "function_declaration":
		e.extractFunction(source, node, path, parent, res)
	case "class_declaration", "abstract_class_declaration":
		e.extractClass(source, node, path, res)
	case "interface_declaration":
		e.extractSimpleDecl(source, node, graph.KindInterface, path, parent, res)
	case "type_alias_declaration":
		e.extractSimpleDecl(source, node, graph.KindTypeAlias, path, parent, res)
	case "enum_declaration":
		e.extractSimpleDecl(source, node, graph.KindEnum, path, parent, res)
	case "lexical_declaration":
		e.extractLexicalDecl(source, node, path, parent, res)
	case "export_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			e.extractNode(source, node.NamedChild(i), path, parent, res)
		}
	}
}

func (e *TypeScriptExtractor) extractFunction(source []byte, node *sitter.Node, path, parent string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || node.ChildByFieldName("body") == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindFunction,
		Name:          name,
		QualifiedName: qualify(path, jsQName(parent, name)),
		FilePath:      path,
		Language:      "typescript",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *TypeScriptExtractor) extractClass(source []byte, node *sitter.Node, path string, res *Result) {
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
		Language:      "typescript",
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
		child := body.NamedChild(i)
		if child.Type() == "method_definition" {
			e.extractMethod(source, child, name, path, res)
		}
	}
}

func (e *TypeScriptExtractor) extractMethod(source []byte, node *sitter.Node, className, path string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindMethod,
		Name:          name,
		QualifiedName: qualify(path, className+"."+name),
		FilePath:      path,
		Language:      "typescript",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"receiver": className, "bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *TypeScriptExtractor) extractSimpleDecl(source []byte, node *sitter.Node, kind graph.NodeKind, path, parent string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualify(path, jsQName(parent, name)),
		FilePath:      path,
		Language:      "typescript",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *TypeScriptExtractor) extractLexicalDecl(source []byte, node *sitter.Node, path, parent string, res *Result) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		value := decl.ChildByFieldName("value")
		if value == nil {
			continue
		}
		if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeContent(source, nameNode)
		res.Nodes = append(res.Nodes, Node{graph.GraphNode{
			Kind:          graph.KindFunction,
			Name:          name,
			QualifiedName: qualify(path, jsQName(parent, name)),
			FilePath:      path,
			Language:      "typescript",
			LineStart:     int(node.StartPoint().Row) + 1,
			LineEnd:       int(node.EndPoint().Row) + 1,
			Metadata:      map[string]string{"bodyHash": computeBodyHash(source, node)},
		}})
	}
}

func jsQName(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (e *TypeScriptExtractor) extractImports(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_statement" {
			continue
		}
		moduleNode := findChildByType(child, "string")
		if moduleNode == nil {
			continue
		}
		module := stripQuotes(nodeContent(source, moduleNode))
		res.Edges = append(res.Edges, Edge{
			Source:     path,
			Target:     module,
			Kind:       graph.EdgeImports,
			EdgeSource: graph.SourceHeuristic,
			Confidence: 0.7,
			Line:       int(child.StartPoint().Row) + 1,
		})
	}
}

func (e *TypeScriptExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		switch n.Kind {
		case graph.KindClass, graph.KindFunction, graph.KindInterface, graph.KindTypeAlias, graph.KindEnum:
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

func (e *TypeScriptExtractor) extractHeritage(source []byte, root *sitter.Node, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "export_statement" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				e.extractHeritageFromClass(source, child.NamedChild(j), res)
			}
			continue
		}
		e.extractHeritageFromClass(source, child, res)
	}
}

func (e *TypeScriptExtractor) extractHeritageFromClass(source []byte, node *sitter.Node, res *Result) {
	if node.Type() != "class_declaration" && node.Type() != "abstract_class_declaration" {
		return
	}
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := nodeContent(source, nameNode)
	heritage := findChildByType(node, "class_heritage")
	if heritage == nil {
		return
	}
	for i := 0; i < int(heritage.ChildCount()); i++ {
		child := heritage.Child(i)
		switch child.Type() {
		case "extends_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				res.Edges = append(res.Edges, Edge{
					Source:     className,
					Target:     nodeContent(source, child.NamedChild(j)),
					Kind:       graph.EdgeInherits,
					EdgeSource: graph.SourceStructural,
					Confidence: 1.0,
					Line:       int(child.StartPoint().Row) + 1,
				})
			}
		case "implements_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				target := child.NamedChild(j)
				if target.Type() == "type_identifier" {
					res.Edges = append(res.Edges, Edge{
						Source:     className,
						Target:     nodeContent(source, target),
						Kind:       graph.EdgeImplements,
						EdgeSource: graph.SourceStructural,
						Confidence: 1.0,
						Line:       int(child.StartPoint().Row) + 1,
					})
				}
			}
		}
	}
}

func (e *TypeScriptExtractor) extractCalls(source []byte, root *sitter.Node, res *Result) {
	for _, n := range res.Nodes {
		if n.Kind != graph.KindFunction && n.Kind != graph.KindMethod {
			continue
		}
		decl := findDeclAtLine(root, n.LineStart-1)
		if decl == nil {
			continue
		}
		body := findBody(decl)
		if body == nil {
			continue
		}
		e.collectCalls(source, body, n.QualifiedName, res)
	}
}

func (e *TypeScriptExtractor) collectCalls(source []byte, node *sitter.Node, callerQName string, res *Result) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "arrow_function" || child.Type() == "function_expression" || child.Type() == "function_declaration" {
			continue
		}
		if child.Type() == "call_expression" {
			if callee := child.ChildByFieldName("function"); callee != nil {
				if name := extractCalleeName(source, callee); name != "" {
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

func extractCalleeName(source []byte, node *sitter.Node) string {
	switch node.Type() {
	case "identifier", "member_expression":
		return nodeContent(source, node)
	case "super":
		return "super"
	default:
		return ""
	}
}

func findDeclAtLine(root *sitter.Node, row int) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "export_statement" {
			if found := findDeclAtLine(child, row); found != nil {
				return found
			}
		}
		if int(child.StartPoint().Row) == row {
			if child.Type() == "lexical_declaration" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					if decl := child.NamedChild(j); decl.Type() == "variable_declarator" {
						return decl
					}
				}
			}
			return child
		}
		if child.Type() == "class_declaration" || child.Type() == "abstract_class_declaration" {
			body := child.ChildByFieldName("body")
			if body == nil {
				continue
			}
			for j := 0; j < int(body.NamedChildCount()); j++ {
				method := body.NamedChild(j)
				if method.Type() == "method_definition" && int(method.StartPoint().Row) == row {
					return method
				}
			}
		}
	}
	return nil
}

func findBody(node *sitter.Node) *sitter.Node {
	if node.Type() == "variable_declarator" {
		value := node.ChildByFieldName("value")
		if value == nil {
			return nil
		}
		if body := value.ChildByFieldName("body"); body != nil {
			return body
		}
		return value
	}
	return node.ChildByFieldName("body")
}
