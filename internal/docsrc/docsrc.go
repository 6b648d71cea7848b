// Package docsrc walks the source corpus directory and collects the raw
// markdown documents the rewrite pipeline will process.
package docsrc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Doc is one source document: its corpus-relative path, modification time,
// and raw bytes.
type Doc struct {
	RelPath  string
	AbsPath  string
	Modified time.Time
	Raw      []byte
}

// Options controls the directory walk.
type Options struct {
	ExcludeDirs   []string
	IncludeHidden bool
}

var defaultExcludedDirs = []string{
	"node_modules", "vendor", "venv", ".venv", "deps", "third_party",
	".git", ".hg", ".svn", ".idea", ".vscode", "__pycache__",
	"doc", "metadata", // the archive store and annotation store live under the corpus root
}

// Collect walks root and returns every markdown source document, sorted by
// relative path for deterministic build order.
func Collect(ctx context.Context, root string, opts Options) ([]Doc, error) {
	if root == "" {
		return nil, fmt.Errorf("docsrc: root directory must be provided")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("docsrc: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("docsrc: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docsrc: %s is not a directory", absRoot)
	}

	exclude := make(map[string]struct{}, len(defaultExcludedDirs)+len(opts.ExcludeDirs))
	for _, name := range defaultExcludedDirs {
		exclude[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range opts.ExcludeDirs {
		if name = strings.TrimSpace(name); name != "" {
			exclude[strings.ToLower(name)] = struct{}{}
		}
	}

	var docs []Doc
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if _, skip := exclude[strings.ToLower(name)]; skip {
				return fs.SkipDir
			}
			return nil
		}

		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if !isMarkdown(name) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		raw, err := os.ReadFile(path) //nolint:gosec // path is derived from a validated root during the walk
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		fileInfo, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		docs = append(docs, Doc{
			RelPath:  filepath.ToSlash(rel),
			AbsPath:  path,
			Modified: fileInfo.ModTime(),
			Raw:      raw,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs, nil
}

func isMarkdown(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
