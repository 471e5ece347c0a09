package workspace

import (
	"testing"

	"github.com/meridiancode/meridian/internal/graph"
)

func TestEmitNodes_MonorepoContainment(t *testing.T) {
	store := graph.NewStore()

	sourcePath := "/repo"
	filePath := "/repo/packages/core/src/index.ts"
	store.AddNode(graph.GraphNode{Kind: graph.KindFile, Name: "index.ts", QualifiedName: filePath, FilePath: filePath})

	info := &Info{
		WorkspaceType:  "monorepo",
		PackageManager: "pnpm",
		Packages: []Package{
			{Name: "@test/core", Path: "packages/core", Version: "0.1.0", EntryPoint: "src/index.ts"},
		},
		AliasMap: map[string]string{"@test/core": "packages/core"},
	}

	EmitNodes(store, sourcePath, info, []string{filePath})

	roots := store.NodesOfKind(graph.KindWorkspaceRoot)
	if len(roots) != 1 {
		t.Fatalf("expected 1 workspace root node, got %d", len(roots))
	}
	if roots[0].Metadata["workspace_type"] != "monorepo" || roots[0].Metadata["package_manager"] != "pnpm" {
		t.Errorf("unexpected root metadata: %+v", roots[0].Metadata)
	}

	pkgs := store.NodesOfKind(graph.KindPackage)
	if len(pkgs) != 1 || pkgs[0].Name != "@test/core" {
		t.Fatalf("expected 1 package node named @test/core, got %+v", pkgs)
	}

	rootID, ok := store.FindByQualifiedName(sourcePath)
	if !ok {
		t.Fatal("workspace root not findable by qualified name")
	}
	pkgID, ok := store.FindByQualifiedName("packages/core")
	if !ok {
		t.Fatal("package not findable by qualified name")
	}
	fileID, ok := store.FindByQualifiedName(filePath)
	if !ok {
		t.Fatal("file node missing")
	}

	rootToPkg := false
	for _, e := range store.EdgesFrom(rootID) {
		if e.Target == pkgID && e.Kind == graph.EdgeContains {
			rootToPkg = true
		}
	}
	if !rootToPkg {
		t.Error("expected Contains edge from workspace root to package")
	}

	pkgToFile := false
	for _, e := range store.EdgesFrom(pkgID) {
		if e.Target == fileID && e.Kind == graph.EdgeContains {
			pkgToFile = true
		}
	}
	if !pkgToFile {
		t.Error("expected Contains edge from package to the file beneath it")
	}
}

func TestEmitNodes_FileOutsidePackageNotLinked(t *testing.T) {
	store := graph.NewStore()

	sourcePath := "/repo"
	otherPkgFile := "/repo/packages/web/src/index.tsx"
	store.AddNode(graph.GraphNode{Kind: graph.KindFile, Name: "index.tsx", QualifiedName: otherPkgFile, FilePath: otherPkgFile})

	info := &Info{
		WorkspaceType:  "monorepo",
		PackageManager: "pnpm",
		Packages: []Package{
			{Name: "@test/core", Path: "packages/core"},
		},
		AliasMap: map[string]string{},
	}

	EmitNodes(store, sourcePath, info, []string{otherPkgFile})

	pkgID, ok := store.FindByQualifiedName("packages/core")
	if !ok {
		t.Fatal("package node missing")
	}
	for _, e := range store.EdgesFrom(pkgID) {
		if e.Kind == graph.EdgeContains {
			t.Errorf("package should not contain a file from a different package, got edge to node %d", e.Target)
		}
	}
}

func TestBelongsToPackage(t *testing.T) {
	cases := []struct {
		filePath, pkgPath string
		want              bool
	}{
		{"packages/core/src/index.ts", "packages/core", true},
		{"packages/core", "packages/core", true},
		{"packages/corex/src/index.ts", "packages/core", false},
		{"src/index.ts", ".", true},
		{"anything", "", true},
	}
	for _, c := range cases {
		if got := belongsToPackage(c.filePath, c.pkgPath); got != c.want {
			t.Errorf("belongsToPackage(%q, %q) = %v, want %v", c.filePath, c.pkgPath, got, c.want)
		}
	}
}
