// Package memboard provides an in-memory clipboard backend for
// tests: snapshots are set programmatically and reads never touch the
// OS.
package memboard

import (
	"sync"

	"github.com/clipvault/clipvault/internal/clipboard"
)

// Board is an in-memory clipboard.Backend. The zero value is usable.
type Board struct {
	mu      sync.Mutex
	current clipboard.Snapshot
	readErr error
	writes  []clipboard.Snapshot
}

func New() *Board { return &Board{} }

func (b *Board) Name() string { return "memboard" }

// Set replaces the current clipboard contents.
func (b *Board) Set(snap clipboard.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = snap
}

// SetText is shorthand for a plain-text clipboard.
func (b *Board) SetText(text string) {
	b.Set(clipboard.Snapshot{Text: text})
}

// FailReads makes subsequent reads return err (nil restores reads).
func (b *Board) FailReads(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
}

func (b *Board) Read() (*clipboard.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	snap := b.current
	return &snap, nil
}

func (b *Board) Write(snap *clipboard.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = *snap
	b.writes = append(b.writes, *snap)
	return nil
}

// Writes returns every snapshot written so far.
func (b *Board) Writes() []clipboard.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]clipboard.Snapshot, len(b.writes))
	copy(out, b.writes)
	return out
}
