package box

// Layout mirrors Rust's alloc::Layout: the size and alignment of the
// allocation backing a control block, reported by the tracer capability
// so the allocator bookkeeping (ccstats) can be told how many bytes came
// back on reclamation. Go's allocator gives us neither figure directly for
// an arbitrary T, so every Box[T] computes this from unsafe.Sizeof/Alignof
// of T each time it is asked (see box.go).
type Layout struct {
	Size  uintptr
	Align uintptr
}

// Tracer is the type-erased capability every managed payload supplies.
// A Box[T] satisfies this interface itself and delegates to T — Go's
// interface satisfaction is the "stable vtable" spec §9 asks for; no
// payload type is ever named outside the Box[T] that owns it.
type Tracer interface {
	// Trace invokes ctx.Visit on every outgoing managed edge.
	Trace(ctx *TraceCtx)
	// MakeCopy appends outgoing control-block pointers to ctx.Buffer, used
	// by logged.Mutex to snapshot edges for the collector.
	MakeCopy(ctx *CopyCtx)
	// layout reports the allocation's size/alignment.
	layout() Layout
}

// Finalizer is optionally implemented by a payload to receive a finalize
// hook before the drop pass in Bacon-Rajan phase 3.
type Finalizer interface {
	Finalize()
}

// dropper erases the payload's in-place destruction so the collector never
// needs to know T.
type dropper interface {
	dropValue()
}

// deallocator erases a Box[T]'s final teardown — dropping the value,
// reporting freed bytes to ccstats, and leaving the live-block registry —
// so the collector can reclaim a block without ever naming T.
type deallocator interface {
	deallocate()
}

// TraceCtx is handed to Tracer.Trace by the collector during the Counting
// and RootTracing phases of Bacon-Rajan (spec §4.6). Visit must be called
// once per outgoing edge; what it does depends entirely on which phase the
// collector is currently running, which TraceCtx hides from the payload.
type TraceCtx struct {
	Visit func(child *Header)
}

// CopyCtx accumulates outgoing control-block pointers for a logged-mutex
// snapshot (spec §4.7). A bare Ptr[T]'s MakeCopy just appends itself.
type CopyCtx struct {
	Buffer []*Header
}

// Header is the fixed control-block header preceding every managed value.
// next/prev are touched only by the collector goroutine (invariant 5).
type Header struct {
	next, prev *Header
	st         state
	tracer     Tracer
}

func (h *Header) Counter() uint32          { return h.st.counter() }
func (h *Header) TracingCounter() uint32   { return h.st.tracingCounter() }
func (h *Header) Mark() Mark               { return h.st.currentMark() }
func (h *Header) IsInPossibleCycles() bool { return h.st.isInPossibleCycles() }
func (h *Header) IsTraced() bool           { return h.st.isTraced() }
func (h *Header) IsNotMarked() bool        { return h.st.isNotMarked() }
func (h *Header) NeedsFinalization() bool  { return h.st.needsFinalization() }
func (h *Header) Layout() Layout           { return h.tracer.layout() }

func (h *Header) IncrementCounter() error { return h.st.incrementCounter() }
func (h *Header) DecrementCounter() error { return h.st.decrementCounter() }
func (h *Header) SetMark(m Mark)          { h.st.mark(m) }
func (h *Header) ResetTracingCounter()    { h.st.resetTracingCounter() }
func (h *Header) IncrementTracingCounter() { h.st.incrementTracingCounter() }
func (h *Header) SetInPossibleCycles(v bool) { h.st.setInPossibleCycles(v) }
func (h *Header) SetFinalized(v bool)      { h.st.setFinalized(v) }

// Next and Prev expose the intrusive-list links to package intrusive. Only
// the collector goroutine calls these, per invariant 5.
func (h *Header) Next() *Header     { return h.next }
func (h *Header) Prev() *Header     { return h.prev }
func (h *Header) SetNext(n *Header) { h.next = n }
func (h *Header) SetPrev(p *Header) { h.prev = p }

// Trace delegates to the owning Box[T]'s Tracer implementation.
func (h *Header) Trace(ctx *TraceCtx) { h.tracer.Trace(ctx) }

// MakeCopy delegates to the owning Box[T]'s Tracer implementation.
func (h *Header) MakeCopy(ctx *CopyCtx) { h.tracer.MakeCopy(ctx) }

// Finalize invokes the payload's Finalize hook, if any, and clears the
// finalize-pending bit. A no-op if the type never implemented Finalizer.
func (h *Header) Finalize() {
	if f, ok := h.tracer.(Finalizer); ok {
		f.Finalize()
	}
	h.st.setFinalized(true)
}

// DropValue runs the payload's destructor in place. Safe to call only once,
// from the final reclamation pass.
func (h *Header) DropValue() {
	if d, ok := h.tracer.(dropper); ok {
		d.dropValue()
	}
}

// Deallocate runs the owning Box[T]'s final teardown. Safe to call only
// once, after a block's strong_count has reached zero and it has been
// unlinked from every intrusive list.
func (h *Header) Deallocate() {
	if d, ok := h.tracer.(deallocator); ok {
		d.deallocate()
	}
}
