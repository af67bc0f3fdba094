// Package cc is the user-facing managed handle (spec §6's "Managed
// handle"): a thread-aware, cycle-collecting shared pointer built on top
// of packages box, inbox, collector, and logged. New wires the collector
// singleton into existence on first use; everything after that is Clone,
// Drop, Deref, and the observability surface.
package cc

import (
	"context"

	"github.com/vesperine/cc/box"
	"github.com/vesperine/cc/collector"
)

// Ptr is a managed handle to a T. The zero value is not usable; obtain one
// via New or Clone.
type Ptr[T box.Payload] struct {
	b *box.Box[T]
}

// New allocates a T with strong_count = 1 and no inbox entry — creation
// never touches the inbox, per spec §3's Handle "Create" semantics. The
// collector goroutine is started here if this is the first allocation in
// the process.
func New[T box.Payload](v T) Ptr[T] {
	collector.Ensure()
	return Ptr[T]{b: box.New(v, false)}
}

// NewWithConfig is New, but also applies cfg (currently just logging setup)
// before the first allocation starts the collector goroutine. Calling it
// after the collector is already running only affects logging: the
// collector itself is never restarted or reconfigured mid-process.
func NewWithConfig[T box.Payload](ctx context.Context, cfg *Config, v T) (Ptr[T], error) {
	if err := Init(ctx, cfg); err != nil {
		return Ptr[T]{}, err
	}
	return New(v), nil
}

// Clone produces a second handle to the same allocation, queuing an Add
// entry for the collector to apply at the next cycle. Calling Clone from
// inside a Trace or Finalize callback — i.e. from the collector's own
// goroutine — is a programming error and panics with a
// *collector.FatalError, matching spec §7's re-entrant-use rule. Calling
// it from any other goroutine is always fine, even while the collector is
// busy tracing unrelated objects concurrently.
func (p Ptr[T]) Clone() Ptr[T] {
	if collector.OnCollectorGoroutine() {
		collector.Raise("cc: Clone called from the collector goroutine")
	}
	collector.Get().PushAdd(&p.b.Header)
	return Ptr[T]{b: p.b}
}

// Drop releases this handle, queuing a Remove entry. Dropping a handle
// from the collector goroutine itself (e.g. inside a Finalize callback
// that still holds a sibling handle) is a silent no-op — the collector's
// own reclamation logic already accounts for that edge directly.
func (p Ptr[T]) Drop() {
	collector.Get().PushRemove(&p.b.Header)
}

// Deref borrows the underlying value. Calling it from the collector's own
// goroutine — i.e. from inside a Trace or Finalize callback — is a
// programming error and panics, matching spec §7. Calling it from any
// other goroutine is unaffected by a concurrently running cycle.
func (p Ptr[T]) Deref() *T {
	if collector.OnCollectorGoroutine() {
		collector.Raise("cc: Deref called from the collector goroutine")
	}
	return &p.b.Value
}

// PtrEq reports whether a and b refer to the same allocation.
func PtrEq[T box.Payload](a, b Ptr[T]) bool { return a.b == b.b }

// StrongCount returns the allocation's current strong_count. Best-effort:
// may be stale the instant it returns if other mutators are concurrently
// cloning or dropping handles.
func (p Ptr[T]) StrongCount() uint32 { return p.b.Header.Counter() }

// IsUnique reports whether this is the only live handle to the allocation.
func (p Ptr[T]) IsUnique() bool { return p.StrongCount() == 1 }

// Trace satisfies box.Payload so a Ptr[T] can itself be a field of a
// larger managed payload: a bare handle's trace is exactly "visit my own
// control block", per spec §4.7.
func (p Ptr[T]) Trace(ctx *box.TraceCtx) { ctx.Visit(&p.b.Header) }

// MakeCopy satisfies box.Payload: a bare handle's snapshot is its own
// control-block pointer.
func (p Ptr[T]) MakeCopy(ctx *box.CopyCtx) { ctx.Buffer = append(ctx.Buffer, &p.b.Header) }
