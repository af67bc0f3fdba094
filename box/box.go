package box

import (
	"unsafe"

	"github.com/vesperine/cc/ccstats"
)

// Payload is what a user type must implement to be wrapped in a Box[T].
// Trace must be deterministic and free of allocation or mutex acquisition
// beyond logged.Mutex's own snapshot path (spec §4.7).
type Payload interface {
	Trace(ctx *TraceCtx)
	MakeCopy(ctx *CopyCtx)
}

// Box is the control block plus payload: Header followed by the aligned
// user value, exactly as spec §3 describes it.
type Box[T Payload] struct {
	Header
	Value T
}

// New allocates a control block with strong_count = 1 and no inbox entry,
// matching spec §3's Handle "Create" semantics. alreadyFinalized lets a
// caller re-entering from inside a finalizer mark the value as already
// finalized, mirroring the source's state.is_finalizing() check.
func New[T Payload](v T, alreadyFinalized bool) *Box[T] {
	b := &Box[T]{Value: v}
	b.Header.tracer = b
	b.Header.st.init(1, alreadyFinalized)
	registry.Set(&b.Header, struct{}{})
	ccstats.Alloc(b.layout().Size)
	return b
}

func (b *Box[T]) Trace(ctx *TraceCtx)    { b.Value.Trace(ctx) }
func (b *Box[T]) MakeCopy(ctx *CopyCtx)  { b.Value.MakeCopy(ctx) }
func (b *Box[T]) layout() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// Finalize forwards to the payload's own Finalize hook, if T has one. It
// shadows the Finalize promoted from the embedded Header, so
// Header.Finalize reaches the payload instead of calling itself.
func (b *Box[T]) Finalize() {
	if f, ok := any(b.Value).(Finalizer); ok {
		f.Finalize()
	} else if f, ok := any(&b.Value).(Finalizer); ok {
		f.Finalize()
	}
}

func (b *Box[T]) dropValue() {
	var zero T
	b.Value = zero
}

// deallocate runs the payload destructor, reports the freed bytes to
// ccstats, and removes the block from the live-block registry. Reached only
// through Header.Deallocate, once a block's strong_count has reached zero
// and it has been unlinked from every intrusive list.
func (b *Box[T]) deallocate() {
	size := b.layout().Size
	b.DropValue()
	registry.Del(&b.Header)
	ccstats.Free(size)
}
