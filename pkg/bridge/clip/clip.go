// Package clip backs the !CLIPBOARD variable with the system clipboard.
package clip

import (
	"sync"

	"github.com/atotto/clipboard"
)

// Bridge reads and writes the system clipboard. On systems without a
// clipboard (headless CI, containers) it degrades to an in-memory
// value so macros using !CLIPBOARD still run.
type Bridge struct {
	mu       sync.Mutex
	fallback string
}

// New creates a clipboard bridge.
func New() *Bridge {
	return &Bridge{}
}

// Get returns the clipboard contents.
func (b *Bridge) Get() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clipboard.Unsupported {
		return b.fallback, nil
	}
	s, err := clipboard.ReadAll()
	if err != nil {
		return b.fallback, nil
	}
	return s, nil
}

// Set replaces the clipboard contents. The in-memory value is updated
// even when the system clipboard is unavailable, so Set never fails on
// systems without clipboard utilities.
func (b *Bridge) Set(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback = text
	if !clipboard.Unsupported {
		_ = clipboard.WriteAll(text)
	}
	return nil
}
