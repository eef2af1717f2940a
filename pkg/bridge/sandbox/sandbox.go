// Package sandbox implements the file bridge under a confined root
// directory. It prevents path traversal out of the macros root and
// supports deny patterns for files the macro language must never touch.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/macrokit/macrokit/pkg/bridge"
)

// Bridge performs file operations relative to a fixed root. All
// failures come back as Response.Err strings so the handler layer can
// map them onto the error taxonomy.
type Bridge struct {
	root string
	deny []glob.Glob
}

// New creates a sandbox rooted at dir, creating it when missing.
// denyPatterns are glob patterns (relative, slash-separated) that are
// rejected with an access-denied error.
func New(dir string, denyPatterns []string) (*Bridge, error) {
	if dir == "" {
		return nil, fmt.Errorf("macros root cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve macros root: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create macros root: %w", err)
	}

	b := &Bridge{root: abs}
	for _, p := range denyPatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("bad deny pattern %q: %w", p, err)
		}
		b.deny = append(b.deny, g)
	}
	return b, nil
}

// Root returns the absolute macros root.
func (b *Bridge) Root() string { return b.root }

// Send performs one file operation.
func (b *Bridge) Send(_ context.Context, op bridge.FileOp) bridge.Response {
	path, err := b.resolve(op.Name)
	if err != nil {
		return bridge.Failf(err)
	}

	switch op.Kind {
	case bridge.OpFileRead:
		data, err := os.ReadFile(path)
		if err != nil {
			return bridge.Failf(err)
		}
		return bridge.OK(string(data))

	case bridge.OpFileWrite:
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return bridge.Failf(err)
		}
		if err := os.WriteFile(path, []byte(op.Data), 0644); err != nil {
			return bridge.Failf(err)
		}
		return bridge.OK("")

	case bridge.OpFileAppend:
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return bridge.Failf(err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return bridge.Failf(err)
		}
		defer f.Close()
		if _, err := f.WriteString(op.Data); err != nil {
			return bridge.Failf(err)
		}
		return bridge.OK("")

	case bridge.OpFileDelete:
		if err := os.Remove(path); err != nil {
			return bridge.Failf(err)
		}
		return bridge.OK("")

	default:
		return bridge.Failf(fmt.Errorf("unsupported file operation %q", op.Kind))
	}
}

// resolve turns a macro-supplied name into an absolute path inside the
// root, rejecting traversal and denied patterns.
func (b *Bridge) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("access denied: %q is outside the macros root", name)
	}

	rel := filepath.ToSlash(filepath.Clean(name))
	path := filepath.Join(b.root, filepath.FromSlash(rel))
	if path != b.root && !strings.HasPrefix(path, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("access denied: %q is outside the macros root", name)
	}

	relOut, err := filepath.Rel(b.root, path)
	if err != nil {
		return "", fmt.Errorf("access denied: %q is outside the macros root", name)
	}
	relOut = filepath.ToSlash(relOut)
	if relOut == ".." || strings.HasPrefix(relOut, "../") {
		return "", fmt.Errorf("access denied: %q is outside the macros root", name)
	}
	for _, g := range b.deny {
		if g.Match(relOut) {
			return "", fmt.Errorf("access denied by policy: %s", relOut)
		}
	}
	return path, nil
}
