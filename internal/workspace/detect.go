// Package workspace detects a repository's package-manager layout — Go
// modules/workspaces, Node npm/pnpm/yarn workspaces, or a standalone
// directory — and turns the result into WorkspaceRoot/Package graph nodes.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Info describes the detected workspace layout.
type Info struct {
	WorkspaceType  string // "monorepo" or "standalone"
	PackageManager string
	Packages       []Package
	AliasMap       map[string]string // import path -> repo-relative path
}

// Package is one detected package within the workspace.
type Package struct {
	Name       string
	Path       string
	Version    string
	EntryPoint string
}

// Detector detects workspace structure for one language ecosystem. It
// returns nil, nil when sourcePath doesn't look like that ecosystem.
type Detector interface {
	Detect(sourcePath string) (*Info, error)
}

// detectors is the ordered list of language detectors; first match wins.
var detectors = []Detector{
	&NodeDetector{},
	&GoDetector{},
}

// Detect analyzes sourcePath to determine its workspace structure.
func Detect(sourcePath string) (*Info, error) {
	if !dirExists(sourcePath) {
		return nil, fmt.Errorf("workspace: source path does not exist: %s", sourcePath)
	}

	for _, d := range detectors {
		info, err := d.Detect(sourcePath)
		if err != nil {
			return nil, err
		}
		if info != nil {
			return info, nil
		}
	}

	return &Info{
		WorkspaceType: "standalone",
		Packages:      []Package{{Name: filepath.Base(sourcePath), Path: "."}},
		AliasMap:      make(map[string]string),
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
