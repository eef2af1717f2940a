// Package store resolves macro names to source files under the macros
// root directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Extension is the conventional macro file suffix.
const Extension = ".iim"

// Store locates and loads macros by name. Names may be plain file
// names (with or without the extension), relative paths, or glob
// patterns; patterns resolve to the first match in sorted order.
type Store struct {
	root string
}

// New creates a store over the given root directory.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("macros root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve macros root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute macros root.
func (s *Store) Root() string { return s.root }

// Resolve maps a macro name to the path of an existing macro file.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("macro name cannot be empty")
	}

	for _, candidate := range []string{name, name + Extension} {
		path := filepath.Join(s.root, filepath.FromSlash(candidate))
		if !s.inRoot(path) {
			return "", fmt.Errorf("macro %q is outside the macros root", name)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	if strings.ContainsAny(name, "*?[{") {
		matches, err := s.List(name)
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			return filepath.Join(s.root, filepath.FromSlash(matches[0])), nil
		}
	}

	return "", fmt.Errorf("macro %q not found", name)
}

// Load resolves a macro name and returns its source text.
func (s *Store) Load(name string) (string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read macro %q: %w", name, err)
	}
	return string(data), nil
}

// List returns the macro files under the root matching a glob pattern,
// as sorted slash-separated paths relative to the root. An empty
// pattern lists every macro.
func (s *Store) List(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**"
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("bad macro pattern %q: %w", pattern, err)
	}

	var matches []string
	err = filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.EqualFold(filepath.Ext(path), Extension) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if g.Match(rel) || g.Match(strings.TrimSuffix(rel, Extension)) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan macros root: %w", err)
	}

	sort.Strings(matches)
	return matches, nil
}

func (s *Store) inRoot(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
