package collector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"
	"golang.org/x/sync/errgroup"

	"github.com/vesperine/cc/box"
	"github.com/vesperine/cc/ccstats"
	"github.com/vesperine/cc/inbox"
	"github.com/vesperine/cc/intrusive"
)

// Stats is a point-in-time snapshot of the observability counters spec §6
// calls out: n_acyclic_dropped, n_cyclic_dropped, collector_version,
// collector_state.
type Stats struct {
	AcyclicDropped uint64
	CyclicDropped  uint64
	Version        uint64
	State          State
}

// Collector is the singleton background goroutine plus the process-wide
// state spec §6/§9 lists: inbox, possible_cycles, snapshot registry, stop
// flag, counters.
type Collector struct {
	state State
	stateMu sync.Mutex

	version atomic.Uint64

	in             inbox.Inbox
	possibleCycles intrusive.List

	acyclicDropped atomic.Uint64
	cyclicDropped  atomic.Uint64

	wakeCh chan struct{}
	stop   atomic.Bool
	done   atomic.Bool

	snapMu    sync.Mutex
	snapshots []Snapshotted

	group *errgroup.Group
}

var (
	instMu sync.Mutex
	inst   *Collector
)

// Ensure starts the collector goroutine on first call and is a no-op on
// every subsequent call — spec §5's "created lazily on first allocation".
func Ensure() *Collector {
	instMu.Lock()
	defer instMu.Unlock()
	if inst == nil {
		inst = newCollector()
		inst.spawn()
	}
	return inst
}

// Get returns the singleton, panicking if Ensure has never been called.
// Package cc always calls Ensure before handing out a Ptr[T], so any
// legitimate caller of Get has a non-nil singleton.
func Get() *Collector {
	instMu.Lock()
	defer instMu.Unlock()
	if inst == nil {
		fatal("collector: used before first allocation")
	}
	return inst
}

// Peek returns the singleton, or nil if Ensure has never been called.
// Unlike Get, it never panics — callers that may legitimately run before
// the first allocation (e.g. cc.CollectAndStop on an otherwise-idle
// process) use this instead.
func Peek() *Collector {
	instMu.Lock()
	defer instMu.Unlock()
	return inst
}

// reset clears the singleton. Test-only: lets each test start from a fresh
// collector instead of sharing global state across the package's test
// binary.
func reset() {
	instMu.Lock()
	inst = nil
	instMu.Unlock()
}

func newCollector() *Collector {
	return &Collector{
		state:  Sleeping,
		wakeCh: make(chan struct{}, 1),
	}
}

func (c *Collector) spawn() {
	g := &errgroup.Group{}
	c.group = g
	g.Go(c.loop)
}

func (c *Collector) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// StateNow returns the collector's current phase.
func (c *Collector) StateNow() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// CurrentVersion returns the monotonic cycle counter.
func (c *Collector) CurrentVersion() uint64 { return c.version.Load() }

// Stats returns a snapshot of the observability counters.
func (c *Collector) Stats() Stats {
	return Stats{
		AcyclicDropped: c.acyclicDropped.Load(),
		CyclicDropped:  c.cyclicDropped.Load(),
		Version:        c.version.Load(),
		State:          c.StateNow(),
	}
}

func (c *Collector) signal() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// CollectCycles signals the collector goroutine and returns immediately.
func (c *Collector) CollectCycles() { c.signal() }

// CollectAndStop signals, drains one final cycle, and joins the collector
// goroutine. Idempotent: calling it again after the goroutine has exited
// does nothing and does not touch the counters.
func (c *Collector) CollectAndStop() error {
	if c.done.Load() {
		return nil
	}
	c.stop.Store(true)
	c.signal()
	err := c.group.Wait()
	c.done.Store(true)
	return err
}

// PushAdd enqueues an Add entry. Called by Ptr[T].Clone.
func (c *Collector) PushAdd(h *box.Header) {
	c.in.Push(inbox.Entry{Block: h, Action: inbox.Add})
}

// PushRemove enqueues a Remove entry and wakes the collector, unless the
// calling code is itself running on the collector goroutine (spec §3/§4.4:
// the collector's own reclamation never re-enters the inbox).
func (c *Collector) PushRemove(h *box.Header) {
	if OnCollectorGoroutine() {
		return
	}
	c.in.Push(inbox.Entry{Block: h, Action: inbox.Remove})
	c.signal()
}

// RegisterSnapshot records a logged.Mutex[T] as holding a live
// snapshot for this cycle so the Cleaning phase can clear it.
func (c *Collector) RegisterSnapshot(s Snapshotted) {
	c.snapMu.Lock()
	c.snapshots = append(c.snapshots, s)
	c.snapMu.Unlock()
}

func (c *Collector) clearSnapshots() {
	c.snapMu.Lock()
	live := c.snapshots
	c.snapshots = nil
	c.snapMu.Unlock()
	for _, s := range live {
		s.ClearSnapshot()
	}
}

func (c *Collector) loop() error {
	setCollectorGoroutine()
	defer clearCollectorGoroutine()

	for {
		<-c.wakeCh
		c.drainWakes()
		c.runCycle()
		if c.stop.Load() {
			return nil
		}
	}
}

func (c *Collector) drainWakes() {
	for {
		select {
		case <-c.wakeCh:
		default:
			return
		}
	}
}

func (c *Collector) runCycle() {
	ctx := context.Background()
	cycleID := uuid.NewString()
	logger := log.WithFunc("collector.runCycle")

	c.setState(Collecting)
	c.version.Add(1)

	changes := c.in.Drain()

	for _, e := range changes {
		if e.Action != inbox.Add {
			continue
		}
		if err := e.Block.IncrementCounter(); err != nil {
			fatal("too many simultaneous handles to a single allocation")
		}
	}
	for _, e := range changes {
		if e.Action != inbox.Remove {
			continue
		}
		c.applyRemove(e.Block)
	}

	c.baconRajan()

	c.setState(Cleaning)
	c.clearSnapshots()
	c.setState(Sleeping)

	logger.Infof(ctx, "cycle %s done version=%d acyclic=%d cyclic=%d %s",
		cycleID, c.version.Load(), c.acyclicDropped.Load(), c.cyclicDropped.Load(), ccstats.Snapshot().Format())
}

func (c *Collector) applyRemove(h *box.Header) {
	if err := h.DecrementCounter(); err != nil {
		fatal("reference count underflow")
	}
	if h.Counter() == 0 {
		// A block can reach zero here while still linked in
		// possible_cycles: two Remove entries for the same block in one
		// drain (e.g. a handle and its clone both dropped this cycle)
		// first relink it as a candidate, then the second brings it to
		// zero. Unlink before reclaiming or the list keeps a dangling
		// pointer into a block that's about to be deallocated.
		if h.IsInPossibleCycles() {
			c.possibleCycles.Remove(h)
			h.SetInPossibleCycles(false)
		}
		c.acyclicDropped.Add(1)
		c.reclaim(h, nil)
	} else {
		c.addToPossibleCycles(h)
	}
}

func (c *Collector) addToPossibleCycles(h *box.Header) {
	if h.IsInPossibleCycles() {
		c.possibleCycles.Remove(h)
	} else {
		h.SetMark(box.PossibleCycles)
		h.SetInPossibleCycles(true)
	}
	c.possibleCycles.Add(h)
}

// trace invokes h.Trace. It runs on the collector goroutine, which is the
// condition Ptr[T].Clone/Deref check via OnCollectorGoroutine to turn a
// re-entrant call from inside this Trace back into a FatalError (spec §7).
func (c *Collector) trace(h *box.Header, ctx *box.TraceCtx) {
	h.Trace(ctx)
}

func (c *Collector) safeFinalize(h *box.Header) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFunc("collector.finalize").Errorf(context.Background(), "finalizer panicked, block still reclaimed: %v", r)
		}
	}()
	h.Finalize()
}

// release traces h's outgoing edges and, for every child not in skip,
// applies a real strong-count decrement — this is Go's explicit stand-in
// for the automatic per-field Drop glue the source relies on (Go has no
// destructors), grounded in spec §4.6 phase 3's note that "drop can
// observe sibling pointers safely". skip is the set of blocks being
// reclaimed in the same batch; their mutual edges are never decremented
// since every member of the batch is unconditionally deallocated next.
func (c *Collector) release(h *box.Header, skip map[*box.Header]struct{}) {
	c.trace(h, &box.TraceCtx{Visit: func(child *box.Header) {
		if _, ok := skip[child]; ok {
			return
		}
		c.releaseEdge(child)
	}})
}

func (c *Collector) releaseEdge(child *box.Header) {
	if err := child.DecrementCounter(); err != nil {
		fatal("reference count underflow")
	}
	if child.Counter() == 0 {
		if child.IsInPossibleCycles() {
			c.possibleCycles.Remove(child)
			child.SetInPossibleCycles(false)
		}
		c.acyclicDropped.Add(1)
		c.reclaim(child, nil)
	} else if !child.IsInPossibleCycles() {
		c.addToPossibleCycles(child)
	}
}

// reclaim runs the three-pass finalize/drop/deallocate sequence for a
// single acyclic-garbage block.
func (c *Collector) reclaim(h *box.Header, skip map[*box.Header]struct{}) {
	if h.NeedsFinalization() {
		c.safeFinalize(h)
	}
	c.release(h, skip)
	h.Deallocate()
}
