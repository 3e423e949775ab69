package lint

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// Walker discovers target files under one or more roots with doublestar
// glob filtering. Traversal is synchronous: the lint family shares the
// pipeline's single-writer model.
type Walker struct {
	include []string
	exclude []string
}

// NewWalker builds a walker. Empty include defaults to **/*.ts. Patterns
// match the path relative to the walked root, slash-separated.
func NewWalker(include, exclude []string) (*Walker, error) {
	if len(include) == 0 {
		include = []string{"**/*.ts"}
	}
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Walker{include: include, exclude: exclude}, nil
}

// Walk returns the files under each target that pass the glob filters, in
// traversal order and without duplicates. A target that is itself a regular
// file is returned as-is.
func (w *Walker) Walk(targets ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, target := range targets {
		err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == target && !d.IsDir() {
				// Explicit file targets bypass the glob filters.
				add(path)
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if path != target && (skipDirs[name] || strings.HasPrefix(name, ".")) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				rel = path
			}
			if w.matches(filepath.ToSlash(rel)) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", target, err)
		}
	}
	return files, nil
}

func (w *Walker) matches(rel string) bool {
	included := false
	for _, p := range w.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range w.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	return true
}
