package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*GoExtractor)(nil)

// GoExtractor extracts functions, methods, types, imports, embeds, calls,
// and chi-style route registrations from a Go source file.
type GoExtractor struct{}

func (e *GoExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	tree, err := pool.ParseBlocking(ctx, golang.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("extract go %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{}

	e.extractDecls(content, root, path, res)
	e.extractImports(content, root, path, res)
	e.extractContains(path, res)
	e.extractEmbeds(content, root, res)
	e.extractCalls(content, root, res)
	e.extractRoutes(content, root, path, res)

	return res, nil
}

func (e *GoExtractor) extractDecls(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			e.extractFunction(source, child, path, res)
		case "method_declaration":
			e.extractMethod(source, child, path, res)
		case "type_declaration":
			e.extractTypeDecl(source, child, path, res)
		}
	}
}

func (e *GoExtractor) extractFunction(source []byte, node *sitter.Node, path string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindFunction,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      "go",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"signature": goSignature(source, node), "bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *GoExtractor) extractMethod(source []byte, node *sitter.Node, path string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)
	receiver := goReceiverType(source, node)
	qname := name
	if receiver != "" {
		qname = receiver + "." + name
	}
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindMethod,
		Name:          name,
		QualifiedName: qualify(path, qname),
		FilePath:      path,
		Language:      "go",
		LineStart:     int(node.StartPoint().Row) + 1,
		LineEnd:       int(node.EndPoint().Row) + 1,
		Metadata:      map[string]string{"signature": goSignature(source, node), "receiver": receiver, "bodyHash": computeBodyHash(source, node)},
	}})
}

func (e *GoExtractor) extractTypeDecl(source []byte, node *sitter.Node, path string, res *Result) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		e.extractTypeSpec(source, spec, node, path, res)
	}
}

func (e *GoExtractor) extractTypeSpec(source []byte, spec, declNode *sitter.Node, path string, res *Result) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeContent(source, nameNode)

	kind := graph.KindTypeAlias
	typeNode := spec.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			kind = graph.KindStruct
		case "interface_type":
			kind = graph.KindInterface
		}
	}

	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualify(path, name),
		FilePath:      path,
		Language:      "go",
		IsContainer:   kind == graph.KindStruct || kind == graph.KindInterface,
		LineStart:     int(declNode.StartPoint().Row) + 1,
		LineEnd:       int(declNode.EndPoint().Row) + 1,
		Metadata:      map[string]string{"bodyHash": computeBodyHash(source, declNode)},
	}})
}

func (e *GoExtractor) extractImports(source []byte, root *sitter.Node, path string, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_declaration" {
			continue
		}
		if spec := findChildByType(child, "import_spec"); spec != nil {
			e.addImportEdge(source, spec, path, res)
			continue
		}
		if list := findChildByType(child, "import_spec_list"); list != nil {
			for j := 0; j < int(list.NamedChildCount()); j++ {
				s := list.NamedChild(j)
				if s.Type() == "import_spec" {
					e.addImportEdge(source, s, path, res)
				}
			}
		}
	}
}

func (e *GoExtractor) addImportEdge(source []byte, spec *sitter.Node, path string, res *Result) {
	pathNode := findChildByType(spec, "interpreted_string_literal")
	if pathNode == nil {
		return
	}
	importPath := stripQuotes(nodeContent(source, pathNode))
	res.Edges = append(res.Edges, Edge{
		Source:     path,
		Target:     importPath,
		Kind:       graph.EdgeImports,
		EdgeSource: graph.SourceHeuristic,
		Confidence: 0.7,
		Line:       int(spec.StartPoint().Row) + 1,
	})
}

func (e *GoExtractor) extractContains(path string, res *Result) {
	for _, n := range res.Nodes {
		switch n.Kind {
		case graph.KindFunction, graph.KindStruct, graph.KindInterface, graph.KindTypeAlias:
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

func (e *GoExtractor) extractEmbeds(source []byte, root *sitter.Node, res *Result) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "type_declaration" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			spec := child.NamedChild(j)
			if spec.Type() == "type_spec" {
				e.extractEmbedsFromSpec(source, spec, res)
			}
		}
	}
}

func (e *GoExtractor) extractEmbedsFromSpec(source []byte, spec *sitter.Node, res *Result) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	structName := nodeContent(source, nameNode)

	typeNode := spec.ChildByFieldName("type")
	if typeNode == nil || typeNode.Type() != "struct_type" {
		return
	}
	fieldList := findChildByType(typeNode, "field_declaration_list")
	if fieldList == nil {
		return
	}
	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		field := fieldList.NamedChild(i)
		if field.Type() != "field_declaration" || !isEmbeddedField(field) {
			continue
		}
		embedded := extractEmbeddedTypeName(source, field)
		if embedded == "" {
			continue
		}
		res.Edges = append(res.Edges, Edge{
			Source:     structName,
			Target:     embedded,
			Kind:       graph.EdgeInherits,
			EdgeSource: graph.SourceStructural,
			Confidence: 1.0,
			Line:       int(field.StartPoint().Row) + 1,
		})
	}
}

func isEmbeddedField(field *sitter.Node) bool {
	for i := 0; i < int(field.NamedChildCount()); i++ {
		if field.NamedChild(i).Type() == "field_identifier" {
			return false
		}
	}
	return true
}

func extractEmbeddedTypeName(source []byte, field *sitter.Node) string {
	for i := 0; i < int(field.NamedChildCount()); i++ {
		child := field.NamedChild(i)
		switch child.Type() {
		case "type_identifier":
			return nodeContent(source, child)
		case "pointer_type":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if inner := child.NamedChild(j); inner.Type() == "type_identifier" {
					return nodeContent(source, inner)
				}
			}
		case "qualified_type":
			return nodeContent(source, child)
		}
	}
	return ""
}

func (e *GoExtractor) extractCalls(source []byte, root *sitter.Node, res *Result) {
	for _, n := range res.Nodes {
		if n.Kind != graph.KindFunction && n.Kind != graph.KindMethod {
			continue
		}
		decl := goFindDeclAtLine(root, n.LineStart-1)
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

func (e *GoExtractor) collectCalls(source []byte, node *sitter.Node, callerQName string, res *Result) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "func_literal" {
			if body := child.ChildByFieldName("body"); body != nil {
				e.collectCalls(source, body, callerQName, res)
			}
			continue
		}
		if child.Type() == "call_expression" {
			if fn := child.ChildByFieldName("function"); fn != nil {
				if callee := goCalleeName(source, fn); callee != "" {
					res.Edges = append(res.Edges, Edge{
						Source:     callerQName,
						Target:     callee,
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

func goCalleeName(source []byte, node *sitter.Node) string {
	switch node.Type() {
	case "identifier", "selector_expression":
		return nodeContent(source, node)
	default:
		return ""
	}
}

// extractRoutes recognizes chi-style `r.Get("/path", handler)` calls and
// records them as Route nodes with a RouteHandler edge to the handler symbol
// when the handler is a bare identifier defined in this same file.
func (e *GoExtractor) extractRoutes(source []byte, root *sitter.Node, path string, res *Result) {
	var walk func(n *sitter.Node)
	httpMethods := map[string]bool{"Get": true, "Post": true, "Put": true, "Patch": true, "Delete": true, "Head": true, "Options": true}
	walk = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			fn := n.ChildByFieldName("function")
			args := n.ChildByFieldName("arguments")
			if fn != nil && fn.Type() == "selector_expression" && args != nil {
				field := fn.ChildByFieldName("field")
				if field != nil && httpMethods[nodeContent(source, field)] {
					if int(args.NamedChildCount()) >= 2 {
						routeArg := args.NamedChild(0)
						handlerArg := args.NamedChild(1)
						if routeArg.Type() == "interpreted_string_literal" {
							routePath := stripQuotes(nodeContent(source, routeArg))
							routeName := fmt.Sprintf("%s %s", strings.ToUpper(nodeContent(source, field)), routePath)
							res.Nodes = append(res.Nodes, Node{graph.GraphNode{
								Kind:          graph.KindRoute,
								Name:          routeName,
								QualifiedName: qualify(path, "route::"+routeName),
								FilePath:      path,
								Language:      "go",
								LineStart:     int(n.StartPoint().Row) + 1,
								LineEnd:       int(n.StartPoint().Row) + 1,
							}})
							res.Edges = append(res.Edges, Edge{
								Source:     path,
								Target:     qualify(path, "route::"+routeName),
								Kind:       graph.EdgeContains,
								EdgeSource: graph.SourceStructural,
								Confidence: 1.0,
								Line:       int(n.StartPoint().Row) + 1,
							})
							if handlerArg.Type() == "identifier" {
								handlerName := nodeContent(source, handlerArg)
								res.Edges = append(res.Edges, Edge{
									Source:     qualify(path, "route::"+routeName),
									Target:     qualify(path, handlerName),
									Kind:       graph.EdgeRouteHandler,
									EdgeSource: graph.SourceHeuristic,
									Confidence: 0.9,
									Line:       int(n.StartPoint().Row) + 1,
								})
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

func goReceiverType(source []byte, method *sitter.Node) string {
	recv := method.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() == "parameter_declaration" {
			if typeNode := param.ChildByFieldName("type"); typeNode != nil {
				return goExtractBaseType(source, typeNode)
			}
		}
	}
	return ""
}

func goExtractBaseType(source []byte, node *sitter.Node) string {
	switch node.Type() {
	case "type_identifier":
		return nodeContent(source, node)
	case "pointer_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "type_identifier" {
				return nodeContent(source, child)
			}
		}
	}
	return ""
}

func goSignature(source []byte, node *sitter.Node) string {
	text := nodeContent(source, node)
	if idx := strings.Index(text, "{"); idx != -1 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
}

func goFindDeclAtLine(root *sitter.Node, row int) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if child := root.NamedChild(i); int(child.StartPoint().Row) == row {
			return child
		}
	}
	return nil
}
