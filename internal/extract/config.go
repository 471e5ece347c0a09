package extract

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*ConfigExtractor)(nil)

// ConfigExtractor handles .env files and YAML configuration — no grammar is
// needed, so it never touches the parser pool.
type ConfigExtractor struct{}

func (e *ConfigExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".env") {
		return e.extractEnv(path, content), nil
	}
	return e.extractYAML(path, content)
}

func (e *ConfigExtractor) extractEnv(path string, content []byte) *Result {
	res := &Result{}
	blockQName := qualify(path, "block")
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind:          graph.KindConfigBlock,
		Name:          filepath.Base(path),
		QualifiedName: blockQName,
		FilePath:      path,
		IsContainer:   true,
	}})
	res.Edges = append(res.Edges, Edge{
		Source:     path,
		Target:     blockQName,
		Kind:       graph.EdgeContains,
		EdgeSource: graph.SourceStructural,
		Confidence: 1.0,
	})

	scanner := bufio.NewScanner(bytes.NewReader(content))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, _, ok := strings.Cut(text, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		varQName := qualify(path, "env::"+key)
		res.Nodes = append(res.Nodes, Node{graph.GraphNode{
			Kind:          graph.KindEnvVariable,
			Name:          key,
			QualifiedName: varQName,
			FilePath:      path,
			LineStart:     line,
			LineEnd:       line,
		}})
		res.Edges = append(res.Edges, Edge{
			Source:     blockQName,
			Target:     varQName,
			Kind:       graph.EdgeEnvironmentBinding,
			EdgeSource: graph.SourceStructural,
			Confidence: 1.0,
			Line:       line,
		})
	}
	return res
}

func (e *ConfigExtractor) extractYAML(path string, content []byte) (*Result, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		// Malformed YAML yields an empty result rather than an error — a
		// syntax error in one config file shouldn't halt indexing.
		return &Result{}, nil
	}
	if len(doc.Content) == 0 {
		return &Result{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return &Result{}, nil
	}

	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(filepath.ToSlash(path), ".github/workflows/") :
		return e.extractCIWorkflow(path, root), nil
	case base == "docker-compose.yml" || base == "docker-compose.yaml" || base == "compose.yml" || base == "compose.yaml":
		return e.extractDockerCompose(path, root), nil
	default:
		return e.extractGenericMapping(path, root), nil
	}
}

func (e *ConfigExtractor) extractCIWorkflow(path string, root *yaml.Node) *Result {
	res := &Result{}
	blockQName := qualify(path, "block")
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind: graph.KindConfigBlock, Name: filepath.Base(path), QualifiedName: blockQName,
		FilePath: path, IsContainer: true,
	}})
	res.Edges = append(res.Edges, Edge{Source: path, Target: blockQName, Kind: graph.EdgeContains, EdgeSource: graph.SourceStructural, Confidence: 1.0})

	jobsNode := mappingValue(root, "jobs")
	if jobsNode == nil || jobsNode.Kind != yaml.MappingNode {
		return res
	}
	for _, key := range mappingKeysInOrder(jobsNode) {
		valNode := mappingValue(jobsNode, key)
		line := 0
		if valNode != nil {
			line = valNode.Line
		}
		jobQName := qualify(path, "job::"+key)
		res.Nodes = append(res.Nodes, Node{graph.GraphNode{
			Kind: graph.KindCIJob, Name: key, QualifiedName: jobQName, FilePath: path, LineStart: line, LineEnd: line,
		}})
		res.Edges = append(res.Edges, Edge{
			Source: blockQName, Target: jobQName, Kind: graph.EdgeCITrigger,
			EdgeSource: graph.SourceStructural, Confidence: 1.0, Line: line,
		})
	}
	return res
}

func (e *ConfigExtractor) extractDockerCompose(path string, root *yaml.Node) *Result {
	res := &Result{}
	blockQName := qualify(path, "block")
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind: graph.KindConfigBlock, Name: filepath.Base(path), QualifiedName: blockQName,
		FilePath: path, IsContainer: true,
	}})
	res.Edges = append(res.Edges, Edge{Source: path, Target: blockQName, Kind: graph.EdgeContains, EdgeSource: graph.SourceStructural, Confidence: 1.0})

	servicesNode := mappingValue(root, "services")
	if servicesNode == nil || servicesNode.Kind != yaml.MappingNode {
		return res
	}
	for _, name := range mappingKeysInOrder(servicesNode) {
		svcNode := mappingValue(servicesNode, name)
		if svcNode == nil {
			continue
		}
		svcQName := qualify(path, "service::"+name)
		res.Nodes = append(res.Nodes, Node{graph.GraphNode{
			Kind: graph.KindDockerService, Name: name, QualifiedName: svcQName, FilePath: path,
			LineStart: svcNode.Line, LineEnd: svcNode.Line, IsContainer: true,
		}})
		res.Edges = append(res.Edges, Edge{
			Source: blockQName, Target: svcQName, Kind: graph.EdgeContains,
			EdgeSource: graph.SourceStructural, Confidence: 1.0, Line: svcNode.Line,
		})

		volumes := mappingValue(svcNode, "volumes")
		if volumes == nil || volumes.Kind != yaml.SequenceNode {
			continue
		}
		for _, v := range volumes.Content {
			if v.Kind != yaml.ScalarNode {
				continue
			}
			mountQName := qualify(path, "mount::"+name+"::"+v.Value)
			res.Nodes = append(res.Nodes, Node{graph.GraphNode{
				Kind: graph.KindConfigKey, Name: v.Value, QualifiedName: mountQName, FilePath: path,
				LineStart: v.Line, LineEnd: v.Line,
			}})
			res.Edges = append(res.Edges, Edge{
				Source: svcQName, Target: mountQName, Kind: graph.EdgeDockerMount,
				EdgeSource: graph.SourceStructural, Confidence: 1.0, Line: v.Line,
			})
		}
	}
	return res
}

func (e *ConfigExtractor) extractGenericMapping(path string, root *yaml.Node) *Result {
	res := &Result{}
	blockQName := qualify(path, "block")
	res.Nodes = append(res.Nodes, Node{graph.GraphNode{
		Kind: graph.KindConfigBlock, Name: filepath.Base(path), QualifiedName: blockQName,
		FilePath: path, IsContainer: true,
	}})
	res.Edges = append(res.Edges, Edge{Source: path, Target: blockQName, Kind: graph.EdgeContains, EdgeSource: graph.SourceStructural, Confidence: 1.0})

	for _, key := range mappingKeysInOrder(root) {
		valNode := mappingValue(root, key)
		line := 0
		if valNode != nil {
			line = valNode.Line
		}
		keyQName := qualify(path, "key::"+key)
		res.Nodes = append(res.Nodes, Node{graph.GraphNode{
			Kind: graph.KindConfigKey, Name: key, QualifiedName: keyQName, FilePath: path, LineStart: line, LineEnd: line,
		}})
		res.Edges = append(res.Edges, Edge{
			Source: blockQName, Target: keyQName, Kind: graph.EdgeContains,
			EdgeSource: graph.SourceStructural, Confidence: 1.0, Line: line,
		})
	}
	return res
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func mappingKeysInOrder(node *yaml.Node) []string {
	var keys []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	sort.Strings(keys) // stable output regardless of yaml.v3 decode order quirks
	return keys
}
