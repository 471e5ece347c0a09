package workspace

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
)

// GoDetector detects Go workspaces (go.work) and modules (go.mod).
type GoDetector struct{}

func (d *GoDetector) Detect(sourcePath string) (*Info, error) {
	goWorkPath := filepath.Join(sourcePath, "go.work")
	if fileExists(goWorkPath) {
		moduleDirs, goVersion, err := parseGoWork(goWorkPath)
		if err != nil {
			return nil, fmt.Errorf("workspace: parsing go.work: %w", err)
		}

		info := &Info{
			WorkspaceType:  "monorepo",
			PackageManager: "go",
			AliasMap:       make(map[string]string),
		}
		for _, moduleDir := range moduleDirs {
			modulePath, _, err := parseGoMod(filepath.Join(sourcePath, moduleDir, "go.mod"))
			if err != nil {
				continue
			}
			packages, aliases := discoverGoPackages(sourcePath, modulePath, moduleDir)
			for i := range packages {
				packages[i].Version = goVersion
			}
			info.Packages = append(info.Packages, packages...)
			maps.Copy(info.AliasMap, aliases)
		}
		return info, nil
	}

	goModPath := filepath.Join(sourcePath, "go.mod")
	if fileExists(goModPath) {
		modulePath, goVersion, err := parseGoMod(goModPath)
		if err != nil {
			return nil, fmt.Errorf("workspace: parsing go.mod: %w", err)
		}
		packages, aliases := discoverGoPackages(sourcePath, modulePath, ".")
		for i := range packages {
			packages[i].Version = goVersion
		}
		return &Info{
			WorkspaceType:  "standalone",
			PackageManager: "go",
			Packages:       packages,
			AliasMap:       aliases,
		}, nil
	}

	return nil, nil
}

func parseGoWork(path string) ([]string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}

	var dirs []string
	var goVersion string
	inUseBlock := false

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if ver, ok := strings.CutPrefix(trimmed, "go "); ok && goVersion == "" {
			goVersion = strings.TrimSpace(ver)
			continue
		}
		if trimmed == "use (" {
			inUseBlock = true
			continue
		}
		if inUseBlock && trimmed == ")" {
			inUseBlock = false
			continue
		}
		if inUseBlock {
			if dir := strings.TrimPrefix(trimmed, "./"); dir != "" {
				dirs = append(dirs, dir)
			}
			continue
		}
		if rest, ok := strings.CutPrefix(trimmed, "use "); ok {
			if dir := strings.TrimPrefix(strings.TrimSpace(rest), "./"); dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs, goVersion, nil
}

func parseGoMod(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}

	var modulePath, goVersion string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if mod, ok := strings.CutPrefix(trimmed, "module "); ok && modulePath == "" {
			modulePath = strings.TrimSpace(mod)
			continue
		}
		if ver, ok := strings.CutPrefix(trimmed, "go "); ok && goVersion == "" {
			goVersion = strings.TrimSpace(ver)
			continue
		}
	}
	if modulePath == "" {
		return "", "", fmt.Errorf("no module directive found in %s", path)
	}
	return modulePath, goVersion, nil
}

func discoverGoPackages(rootPath, modulePath, moduleDir string) ([]Package, map[string]string) {
	absModuleDir := filepath.Join(rootPath, moduleDir)
	var packages []Package
	aliasMap := make(map[string]string)

	filepath.WalkDir(absModuleDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if !dirHasGoFiles(path) {
			return nil
		}

		relToModule, _ := filepath.Rel(absModuleDir, path)
		relToRoot, _ := filepath.Rel(rootPath, path)

		importPath := modulePath
		if relToModule != "." {
			importPath = modulePath + "/" + filepath.ToSlash(relToModule)
		}

		packages = append(packages, Package{
			Name:       importPath,
			Path:       relToRoot,
			EntryPoint: findGoEntryPoint(path),
		})
		aliasMap[importPath] = relToRoot
		return nil
	})

	return packages, aliasMap
}

func findGoEntryPoint(pkgDir string) string {
	if fileExists(filepath.Join(pkgDir, "main.go")) {
		return "main.go"
	}
	return ""
}

func dirHasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			return true
		}
	}
	return false
}
