package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// NodeDetector detects JS/TS workspaces via package.json and its optional
// "workspaces" field (npm/yarn classic monorepo convention).
type NodeDetector struct{}

type packageJSON struct {
	Name       string      `json:"name"`
	Version    string      `json:"version"`
	Main       string      `json:"main"`
	Workspaces interface{} `json:"workspaces"`
}

func (d *NodeDetector) Detect(sourcePath string) (*Info, error) {
	pkgPath := filepath.Join(sourcePath, "package.json")
	if !fileExists(pkgPath) {
		return nil, nil
	}

	root, err := readPackageJSON(pkgPath)
	if err != nil {
		return nil, nil
	}

	globs := workspaceGlobs(root.Workspaces)
	info := &Info{PackageManager: detectPackageManager(sourcePath), AliasMap: make(map[string]string)}

	if len(globs) == 0 {
		info.WorkspaceType = "standalone"
		info.Packages = []Package{{Name: orDefault(root.Name, filepath.Base(sourcePath)), Path: ".", Version: root.Version, EntryPoint: root.Main}}
		return info, nil
	}

	info.WorkspaceType = "monorepo"
	for _, glob := range globs {
		matches, _ := filepath.Glob(filepath.Join(sourcePath, glob))
		for _, dir := range matches {
			st, err := os.Stat(dir)
			if err != nil || !st.IsDir() {
				continue
			}
			pkg, err := readPackageJSON(filepath.Join(dir, "package.json"))
			if err != nil {
				continue
			}
			rel, _ := filepath.Rel(sourcePath, dir)
			info.Packages = append(info.Packages, Package{Name: pkg.Name, Path: rel, Version: pkg.Version, EntryPoint: pkg.Main})
			if pkg.Name != "" {
				info.AliasMap[pkg.Name] = rel
			}
		}
	}
	return info, nil
}

func readPackageJSON(path string) (packageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return packageJSON{}, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return packageJSON{}, err
	}
	return pkg, nil
}

func workspaceGlobs(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]interface{}:
		if packages, ok := v["packages"].([]interface{}); ok {
			var out []string
			for _, item := range packages {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

func detectPackageManager(sourcePath string) string {
	switch {
	case fileExists(filepath.Join(sourcePath, "pnpm-lock.yaml")):
		return "pnpm"
	case fileExists(filepath.Join(sourcePath, "yarn.lock")):
		return "yarn"
	default:
		return "npm"
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
