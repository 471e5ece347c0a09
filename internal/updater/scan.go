package updater

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/meridiancode/meridian/internal/watcher"
	"github.com/meridiancode/meridian/internal/workspace"
)

const maxScanFileSizeKB = 512

var scanSkipDirs = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true,
	".next": true, "__pycache__": true, "vendor": true, "testdata": true,
	"bower_components": true, ".canopy": true,
}

var scanSkipFiles = map[string]bool{
	"package-lock.json": true, "pnpm-lock.yaml": true, "yarn.lock": true,
	"go.sum": true,
}

type ignoreEntry struct {
	depth   int
	matcher *ignore.GitIgnore
}

// Scan walks root, detects its workspace layout, and feeds every eligible
// file through Apply as a synthetic Created event — the same per-file
// update path incremental changes use. It returns the number of files
// indexed.
func (u *Updater) Scan(ctx context.Context, root string) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("updater: scan root: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("updater: scan root is not a directory: %s", root)
	}

	count := 0
	var ignoreStack []ignoreEntry

	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		ignoreStack = append(ignoreStack, ignoreEntry{depth: 0, matcher: gi})
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		depth := 0
		if relPath != "." {
			depth = strings.Count(relPath, string(filepath.Separator)) + 1
		}
		for len(ignoreStack) > 0 && ignoreStack[len(ignoreStack)-1].depth >= depth && depth > 0 {
			ignoreStack = ignoreStack[:len(ignoreStack)-1]
		}

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			name := d.Name()
			if scanSkipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if isScanIgnored(relPath, ignoreStack) {
				return filepath.SkipDir
			}
			if gi, loadErr := ignore.CompileIgnoreFile(filepath.Join(path, ".gitignore")); loadErr == nil {
				ignoreStack = append(ignoreStack, ignoreEntry{depth: depth, matcher: gi})
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		name := d.Name()
		ext := filepath.Ext(name)
		if scanSkipFiles[name] || ext == ".lock" || ext == ".log" {
			return nil
		}
		if isScanIgnored(relPath, ignoreStack) {
			return nil
		}
		fi, statErr := d.Info()
		if statErr != nil || fi.Size() > maxScanFileSizeKB*1024 {
			return nil
		}

		if err := u.Apply(ctx, path, watcher.Created); err != nil {
			slog.Warn("updater: initial scan failed for file", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil {
		return count, fmt.Errorf("updater: walking %s: %w", root, walkErr)
	}

	ws, err := workspace.Detect(root)
	if err == nil && ws != nil {
		u.SetAliases(ws.AliasMap)
		files := u.knownFiles()
		workspace.EmitNodes(u.store, root, ws, files)
	}

	return count, nil
}

func (u *Updater) knownFiles() []string {
	u.fileMu.Lock()
	defer u.fileMu.Unlock()
	files := make([]string, 0, len(u.fileNodes))
	for path := range u.fileNodes {
		files = append(files, path)
	}
	return files
}

func isScanIgnored(relPath string, stack []ignoreEntry) bool {
	for _, entry := range stack {
		if entry.matcher.MatchesPath(relPath) {
			return true
		}
	}
	return false
}
