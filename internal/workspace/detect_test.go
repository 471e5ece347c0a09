package workspace

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "tests", "fixtures")
}

func packageNames(pkgs []Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}

func TestDetect_PnpmMonorepo(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "monorepo-pnpm")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.WorkspaceType != "monorepo" {
		t.Errorf("expected workspace type 'monorepo', got %q", info.WorkspaceType)
	}
	if info.PackageManager != "pnpm" {
		t.Errorf("expected package manager 'pnpm', got %q", info.PackageManager)
	}
	if len(info.Packages) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(info.Packages))
	}

	names := packageNames(info.Packages)
	sort.Strings(names)
	expected := []string{"@test/core", "@test/utils", "@test/web"}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("expected package %q at index %d, got %q", name, i, names[i])
		}
	}

	for _, name := range expected {
		if _, ok := info.AliasMap[name]; !ok {
			t.Errorf("alias map missing %q", name)
		}
	}
}

func TestDetect_YarnMonorepo(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "monorepo-yarn")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.PackageManager != "yarn" {
		t.Errorf("expected package manager 'yarn', got %q", info.PackageManager)
	}
	if len(info.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(info.Packages))
	}
}

func TestDetect_NpmMonorepo(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "monorepo-npm")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.PackageManager != "npm" {
		t.Errorf("expected package manager 'npm', got %q", info.PackageManager)
	}
	if len(info.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(info.Packages))
	}
}

func TestDetect_NodeStandalone(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "standalone-repo")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.WorkspaceType != "standalone" {
		t.Errorf("expected workspace type 'standalone', got %q", info.WorkspaceType)
	}
	if len(info.Packages) != 1 || info.Packages[0].Name != "my-app" {
		t.Fatalf("expected single package 'my-app', got %+v", info.Packages)
	}
	if info.Packages[0].EntryPoint == "" {
		t.Error("standalone package should have an entry point")
	}
}

func TestDetect_NoPackageJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "no-package-json")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.WorkspaceType != "standalone" {
		t.Errorf("expected workspace type 'standalone', got %q", info.WorkspaceType)
	}
	if len(info.Packages) != 1 || info.Packages[0].Name != "no-package-json" {
		t.Fatalf("expected anonymous package named from dir, got %+v", info.Packages)
	}
}

func TestDetect_GoWorkspace(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "go-workspace")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.WorkspaceType != "monorepo" {
		t.Errorf("expected workspace type 'monorepo', got %q", info.WorkspaceType)
	}
	if info.PackageManager != "go" {
		t.Errorf("expected package manager 'go', got %q", info.PackageManager)
	}
	if len(info.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(info.Packages))
	}

	names := packageNames(info.Packages)
	sort.Strings(names)
	expected := []string{"github.com/test/workspace/cmd/api", "github.com/test/workspace/pkg/shared"}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("expected package %q at index %d, got %q", name, i, names[i])
		}
	}
}

func TestDetect_GoStandalone(t *testing.T) {
	dir := filepath.Join(fixturesDir(), "go-standalone")
	info, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.WorkspaceType != "standalone" {
		t.Errorf("expected workspace type 'standalone', got %q", info.WorkspaceType)
	}
	if len(info.Packages) != 1 || info.Packages[0].Name != "github.com/test/standalone" {
		t.Fatalf("expected single package 'github.com/test/standalone', got %+v", info.Packages)
	}
}

func TestDetect_NonexistentPath(t *testing.T) {
	if _, err := Detect(filepath.Join(fixturesDir(), "does-not-exist")); err == nil {
		t.Error("expected an error for a nonexistent source path")
	}
}
