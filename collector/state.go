// Package collector implements the singleton background collector
// goroutine: the condvar-driven drain loop (spec §4.4) and the
// Bacon-Rajan trial-deletion engine (spec §4.6) that runs over whatever
// the inbox drained.
package collector

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// State is the process-wide collector phase, published the way spec §5
// describes: a mutex-guarded enum mirrored by a monotonic version.
type State uint8

const (
	Sleeping State = iota
	Collecting
	Cleaning
)

func (s State) String() string {
	switch s {
	case Sleeping:
		return "sleeping"
	case Collecting:
		return "collecting"
	case Cleaning:
		return "cleaning"
	default:
		return "unknown"
	}
}

type stateBox struct {
	mu    sync.Mutex
	value State
}

func (s *stateBox) set(v State) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

func (s *stateBox) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Snapshotted is implemented by logged.Mutex[T] so the collector's
// snapshot registry can clear an arbitrary mutex's snapshot slot during
// the Cleaning phase without importing package logged (which imports
// collector — see SPEC_FULL.md §2 for the acyclic dependency layout).
type Snapshotted interface {
	ClearSnapshot()
}

// collectorGoroutineID holds the id of the single collector goroutine,
// captured once when it starts — the Go analogue of the source keying its
// Drop impl off std::thread::current().id(), since Go has no thread-local
// storage to key a per-goroutine lookup on directly. Zero means no
// collector goroutine is currently running, so OnCollectorGoroutine is
// false for every caller.
//
// A single id comparison, rather than a pair of process-wide flags, is
// what makes this goroutine-scoped rather than process-scoped: a mutator
// goroutine calling Clone/Deref/Drop while the collector is busy tracing
// *other* objects on its own goroutine must not be affected, since it is
// not the call that is actually re-entrant. Grounded on
// joeycumines-go-utilpkg's eventloop.Loop.isLoopThread/getGoroutineID,
// which solves the identical "is the caller the one dedicated goroutine"
// problem for an event loop with the same runtime.Stack-parsing trick.
var collectorGoroutineID atomic.Uint64

// setCollectorGoroutine records the calling goroutine as the collector
// goroutine. Must be the first thing the collector goroutine does.
func setCollectorGoroutine() { collectorGoroutineID.Store(getGoroutineID()) }

// clearCollectorGoroutine undoes setCollectorGoroutine once the collector
// goroutine exits, so OnCollectorGoroutine correctly reports false again
// after CollectAndStop.
func clearCollectorGoroutine() { collectorGoroutineID.Store(0) }

// OnCollectorGoroutine reports whether the calling code is running on the
// collector's own goroutine — true for the whole time that goroutine is
// alive, which in practice means: inside a Trace or Finalize callback
// reached from runCycle, since nothing else ever runs there. Ptr[T]'s
// Clone/Deref treat a true result as re-entrant use and raise a
// FatalError (spec §7); Ptr[T].Drop treats it as a reason to silently
// skip the inbox push, since the collector's own reclamation logic
// already applies that decrement directly (spec §3/§4.4).
func OnCollectorGoroutine() bool {
	id := collectorGoroutineID.Load()
	if id == 0 {
		return false
	}
	return getGoroutineID() == id
}

// getGoroutineID parses the current goroutine's id out of a runtime.Stack
// dump of just this goroutine. Same trick the pack's eventloop package
// uses to implement its own "must run on the loop goroutine" check.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// FatalError is the panic value raised for bugs spec §7 defines as fatal:
// counter overflow/underflow and re-entrant collector use.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return e.Msg }

func fatal(msg string) { panic(&FatalError{Msg: msg}) }

// Raise panics with a FatalError. Exported for package cc, which detects
// the same class of bug (re-entrant clone/deref) at the handle layer.
func Raise(msg string) { fatal(msg) }
