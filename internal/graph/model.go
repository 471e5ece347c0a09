// Package graph implements the stable-index directed multigraph that holds
// the live structural view of a repository: files, symbols, config, and the
// edges between them.
package graph

import "fmt"

// NodeId is an opaque, monotonically-allocated identifier. Once assigned to a
// node it is never reused, even after the node is removed.
type NodeId uint64

// EdgeId is an opaque, monotonically-allocated identifier, never reused.
type EdgeId uint64

func (id NodeId) String() string { return fmt.Sprintf("n%d", uint64(id)) }
func (id EdgeId) String() string { return fmt.Sprintf("e%d", uint64(id)) }

// NodeKind classifies a GraphNode.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindDirectory
	KindFile
	KindModule
	KindClass
	KindStruct
	KindEnum
	KindInterface
	KindFunction
	KindMethod
	KindConstant
	KindTypeAlias
	KindConfigBlock
	KindConfigKey
	KindEnvVariable
	KindRoute
	KindMigration
	KindCIJob
	KindDockerService
	KindWorkspaceRoot
	KindPackage
)

var nodeKindNames = [...]string{
	"Unknown", "Directory", "File", "Module", "Class", "Struct", "Enum",
	"Interface", "Function", "Method", "Constant", "TypeAlias", "ConfigBlock",
	"ConfigKey", "EnvVariable", "Route", "Migration", "CIJob", "DockerService",
	"WorkspaceRoot", "Package",
}

func (k NodeKind) String() string {
	if int(k) < 0 || int(k) >= len(nodeKindNames) {
		return "Unknown"
	}
	return nodeKindNames[k]
}

// MarshalJSON encodes the kind as its name rather than its ordinal.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a kind name back into its ordinal form.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	for i, name := range nodeKindNames {
		if name == s {
			*k = NodeKind(i)
			return nil
		}
	}
	*k = KindUnknown
	return nil
}

// EdgeKind classifies a GraphEdge.
type EdgeKind int

const (
	EdgeContains EdgeKind = iota
	EdgeImports
	EdgeCalls
	EdgeInherits
	EdgeImplements
	EdgeTypeReference
	EdgeInstantiates
	EdgeExports
	EdgeConfiguresArgument
	EdgeEnvironmentBinding
	EdgeRouteHandler
	EdgeMigrationTarget
	EdgeCITrigger
	EdgeDockerMount
	EdgeSemanticReference
)

var edgeKindNames = [...]string{
	"Contains", "Imports", "Calls", "Inherits", "Implements", "TypeReference",
	"Instantiates", "Exports", "ConfiguresArgument", "EnvironmentBinding",
	"RouteHandler", "MigrationTarget", "CITrigger", "DockerMount",
	"SemanticReference",
}

func (k EdgeKind) String() string {
	if int(k) < 0 || int(k) >= len(edgeKindNames) {
		return "Contains"
	}
	return edgeKindNames[k]
}

func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	for i, name := range edgeKindNames {
		if name == s {
			*k = EdgeKind(i)
			return nil
		}
	}
	*k = EdgeContains
	return nil
}

// EdgeSource records how an edge was discovered.
type EdgeSource int

const (
	SourceStructural EdgeSource = iota
	SourceHeuristic
	SourceAI
)

var edgeSourceNames = [...]string{"Structural", "Heuristic", "AI"}

func (s EdgeSource) String() string {
	if int(s) < 0 || int(s) >= len(edgeSourceNames) {
		return "Structural"
	}
	return edgeSourceNames[s]
}

func (s EdgeSource) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *EdgeSource) UnmarshalJSON(data []byte) error {
	str, err := unquote(data)
	if err != nil {
		return err
	}
	for i, name := range edgeSourceNames {
		if name == str {
			*s = EdgeSource(i)
			return nil
		}
	}
	*s = SourceStructural
	return nil
}

func unquote(data []byte) (string, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", fmt.Errorf("graph: invalid quoted string %q", data)
	}
	return string(data[1 : len(data)-1]), nil
}

// GraphNode is a single entity in the code graph.
type GraphNode struct {
	ID            NodeId            `json:"id"`
	Kind          NodeKind          `json:"kind"`
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualifiedName"`
	FilePath      string            `json:"filePath,omitempty"`
	LineStart     int               `json:"lineStart,omitempty"`
	LineEnd       int               `json:"lineEnd,omitempty"`
	Language      string            `json:"language,omitempty"`
	IsContainer   bool              `json:"isContainer"`
	ChildCount    int               `json:"childCount"`
	LOC           int               `json:"loc,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// GraphEdge is a directed relationship between two nodes.
type GraphEdge struct {
	ID         EdgeId     `json:"id"`
	Source     NodeId     `json:"source"`
	Target     NodeId     `json:"target"`
	Kind       EdgeKind   `json:"kind"`
	EdgeSource EdgeSource `json:"edgeSource"`
	Confidence float64    `json:"confidence"`
	Label      string     `json:"label,omitempty"`
	FilePath   string     `json:"filePath,omitempty"`
	Line       int        `json:"line,omitempty"`
}

// AggregatedEdge summarizes the edges underlying a collapsed-container view.
type AggregatedEdge struct {
	Source        NodeId           `json:"source"`
	Target        NodeId           `json:"target"`
	Count         int              `json:"count"`
	ByKind        map[EdgeKind]int `json:"byKind"`
	UnderlyingIDs []EdgeId         `json:"underlyingIds"`
	MinConfidence float64          `json:"minConfidence"`
}
