// Package logged implements the logged-mutex (spec §4.5): a wrapper around
// an interior-mutable payload holding outgoing managed edges, built so the
// collector can trace those edges without ever blocking on a mutator's
// lock. On lock/try_lock during the Collecting phase it opportunistically
// snapshots the payload's edges into the collector's snapshot registry;
// tracing prefers that snapshot, falling back to a non-blocking live trace,
// and finally to a conservative "treat as live" when neither is available.
package logged

import (
	"sync"
	"sync/atomic"

	"github.com/vesperine/cc/box"
	"github.com/vesperine/cc/collector"
)

// Mutex guards a payload T that itself implements box.Payload — the
// snapshot produced on lock is exactly T.MakeCopy's output.
type Mutex[T box.Payload] struct {
	inner    sync.Mutex
	value    T
	poisoned atomic.Bool

	snapMu  sync.Mutex
	snapshot []*box.Header
	hasSnap bool
	version uint64
}

// New wraps v in a logged mutex.
func New[T box.Payload](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

// Guard is the lock handle returned by Lock/TryLock. The zero value is not
// usable; Unlock must be called exactly once per Guard.
type Guard[T box.Payload] struct {
	m *Mutex[T]
}

// Value returns a pointer to the guarded payload, valid until Unlock.
func (g *Guard[T]) Value() *T { return &g.m.value }

// Unlock releases the inner mutex.
func (g *Guard[T]) Unlock() { g.m.inner.Unlock() }

// Poison marks the mutex poisoned and releases it. Callers recovering from
// a panic raised while holding a Guard should call this instead of Unlock.
func (g *Guard[T]) Poison() {
	g.m.poisoned.Store(true)
	g.m.inner.Unlock()
}

// Lock acquires the inner mutex, opportunistically snapshotting outgoing
// edges per spec §4.5, and returns a guard.
func (m *Mutex[T]) Lock() *Guard[T] {
	m.inner.Lock()
	m.maybeSnapshot()
	return &Guard[T]{m: m}
}

// TryLock is the non-blocking form of Lock.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	if !m.inner.TryLock() {
		return nil, false
	}
	m.maybeSnapshot()
	return &Guard[T]{m: m}, true
}

// maybeSnapshot is the lock()/try_lock() hook: only while the collector is
// actively Collecting, and only once per collector_version, capture a fresh
// edge snapshot and register it with the collector so Cleaning tears it
// back down afterward.
func (m *Mutex[T]) maybeSnapshot() {
	c := collector.Ensure()
	if c.StateNow() != collector.Collecting {
		return
	}
	v := c.CurrentVersion()

	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	if m.hasSnap && m.version == v {
		return
	}
	ctx := &box.CopyCtx{}
	m.value.MakeCopy(ctx)
	m.snapshot = ctx.Buffer
	m.version = v
	m.hasSnap = true
	c.RegisterSnapshot(m)
}

// ClearSnapshot satisfies collector.Snapshotted. Invoked by the collector
// during the Cleaning phase for every mutex that installed a snapshot this
// cycle.
func (m *Mutex[T]) ClearSnapshot() {
	m.snapMu.Lock()
	m.snapshot = nil
	m.hasSnap = false
	m.snapMu.Unlock()
}

// GetMut is an exclusive borrow of the payload. Since the caller provably
// holds the only reference, any installed snapshot is already stale —
// clear it eagerly instead of waiting for the next Cleaning phase.
func (m *Mutex[T]) GetMut() *T {
	m.ClearSnapshot()
	return &m.value
}

// IntoInner unwraps the mutex, discarding any snapshot state.
func (m *Mutex[T]) IntoInner() T { return m.value }

// IsPoisoned reports whether a prior critical section panicked.
func (m *Mutex[T]) IsPoisoned() bool { return m.poisoned.Load() }

// ClearPoison resets the poison flag.
func (m *Mutex[T]) ClearPoison() { m.poisoned.Store(false) }

// Trace is the logged-mutex trace hook (spec §4.5): trace the snapshot if
// it's current for this cycle, else fall back to a non-blocking live
// trace, else re-check the snapshot once more, else conservatively treat
// every edge as live by tracing nothing — the owning block simply survives
// this cycle. A poisoned mutex is treated as opaque: nothing is traced, so
// the owning block is conservatively kept live.
func (m *Mutex[T]) Trace(ctx *box.TraceCtx) {
	if m.poisoned.Load() {
		return
	}
	c := collector.Get()
	v := c.CurrentVersion()

	m.snapMu.Lock()
	if m.hasSnap && m.version == v {
		snap := m.snapshot
		m.snapMu.Unlock()
		for _, h := range snap {
			ctx.Visit(h)
		}
		return
	}
	m.snapMu.Unlock()

	if m.inner.TryLock() {
		m.value.Trace(ctx)
		m.inner.Unlock()
		return
	}

	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	if m.hasSnap && m.version == v {
		for _, h := range m.snapshot {
			ctx.Visit(h)
		}
	}
}
