package workspace

import (
	"path/filepath"
	"strings"

	"github.com/meridiancode/meridian/internal/graph"
)

// EmitNodes turns a detected Info into WorkspaceRoot/Package graph nodes,
// Contains-linking each Package to root and to the files beneath it found in
// existingFiles (file paths under sourcePath, as the store holds them).
func EmitNodes(store *graph.Store, sourcePath string, info *Info, existingFiles []string) {
	if info == nil {
		return
	}

	rootID := store.AddNode(graph.GraphNode{
		Kind:          graph.KindWorkspaceRoot,
		Name:          filepath.Base(sourcePath),
		QualifiedName: sourcePath,
		FilePath:      sourcePath,
		IsContainer:   true,
		Metadata: map[string]string{
			"workspace_type":  info.WorkspaceType,
			"package_manager": info.PackageManager,
		},
	})

	for _, pkg := range info.Packages {
		pkgID := store.AddNode(graph.GraphNode{
			Kind:          graph.KindPackage,
			Name:          pkg.Name,
			QualifiedName: pkg.Path,
			FilePath:      pkg.Path,
			IsContainer:   true,
			Metadata: map[string]string{
				"version":     pkg.Version,
				"entry_point": pkg.EntryPoint,
			},
		})
		store.AddEdge(graph.GraphEdge{Source: rootID, Target: pkgID, Kind: graph.EdgeContains, EdgeSource: graph.SourceStructural, Confidence: 1})

		prefix := pkg.Path
		for _, f := range existingFiles {
			rel, err := filepath.Rel(sourcePath, f)
			if err != nil {
				rel = f
			}
			if !belongsToPackage(rel, prefix) {
				continue
			}
			if fileID, ok := store.FindByQualifiedName(f); ok {
				store.AddEdge(graph.GraphEdge{Source: pkgID, Target: fileID, Kind: graph.EdgeContains, EdgeSource: graph.SourceStructural, Confidence: 1})
			}
		}
	}
}

func belongsToPackage(filePath, pkgPath string) bool {
	if pkgPath == "." || pkgPath == "" {
		return true
	}
	rel := filepath.ToSlash(filePath)
	prefix := filepath.ToSlash(pkgPath)
	return rel == prefix || strings.HasPrefix(rel, prefix+"/")
}
