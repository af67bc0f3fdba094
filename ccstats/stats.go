// Package ccstats tracks the allocator bookkeeping spec §1 calls out as an
// external collaborator ("the raw allocator, treated as a malloc/free-shaped
// primitive that additionally reports totals"). The collector and box
// packages report bytes through here; callers needing a human-readable
// figure for logging use Format, which borrows the teacher's go-units
// dependency the way main.go formats VM memory sizes.
package ccstats

import (
	"sync/atomic"

	units "github.com/docker/go-units"
)

var (
	allocated atomic.Uint64
	freed     atomic.Uint64
)

// Alloc records size bytes as allocated.
func Alloc(size uintptr) { allocated.Add(uint64(size)) }

// Free records size bytes as returned to the allocator.
func Free(size uintptr) { freed.Add(uint64(size)) }

// Totals is a point-in-time snapshot of allocator bookkeeping.
type Totals struct {
	Allocated uint64
	Freed     uint64
}

// Snapshot returns the current allocated/freed totals.
func Snapshot() Totals {
	return Totals{Allocated: allocated.Load(), Freed: freed.Load()}
}

// Live returns the number of bytes allocated but not yet freed.
func (t Totals) Live() uint64 { return t.Allocated - t.Freed }

// Format renders the totals the way the teacher formats byte sizes in its
// CLI summaries, in binary units, e.g. "allocated=4.2MiB freed=3.1MiB live=1.1MiB".
func (t Totals) Format() string {
	return "allocated=" + units.BytesSize(float64(t.Allocated)) +
		" freed=" + units.BytesSize(float64(t.Freed)) +
		" live=" + units.BytesSize(float64(t.Live()))
}
