// Package inbox implements the process-wide mutation log mutators append
// count deltas to on clone/drop (spec §4.3). A single mutex guards one
// slice; Drain swaps it for a fresh empty one and hands the old slice to
// the caller, so the critical section is O(1) regardless of backlog size.
package inbox

import (
	"sync"

	"github.com/vesperine/cc/box"
)

// Action is the kind of count delta an Entry carries.
type Action uint8

const (
	Add Action = iota
	Remove
)

// Entry is one queued count delta.
type Entry struct {
	Block  *box.Header
	Action Action
}

// Inbox is the process-wide queue. The zero value is ready to use.
type Inbox struct {
	mu      sync.Mutex
	entries []Entry
}

// Push appends entry. Called from any goroutine on Ptr[T].Clone or
// Ptr[T].Drop.
func (b *Inbox) Push(e Entry) {
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

// Drain swaps the backing slice for a new one and returns everything
// queued since the last Drain. Called once per collection cycle by the
// collector goroutine.
func (b *Inbox) Drain() []Entry {
	b.mu.Lock()
	out := b.entries
	b.entries = nil
	b.mu.Unlock()
	return out
}

// Len reports the number of entries currently queued. Test/debug use only.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
