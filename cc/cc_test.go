package cc_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperine/cc/box"
	"github.com/vesperine/cc/cc"
)

// node is a tiny managed payload used throughout this file: an optional
// single outgoing edge to another node, exactly enough to build acyclic
// chains and small cycles.
type node struct {
	edge cc.Ptr[node]
	has  bool
}

func (n node) Trace(ctx *box.TraceCtx) {
	if n.has {
		n.edge.Trace(ctx)
	}
}

func (n node) MakeCopy(ctx *box.CopyCtx) {
	if n.has {
		n.edge.MakeCopy(ctx)
	}
}

// TestLifecycle drives every scenario from a single collector singleton,
// asserting on deltas rather than absolute counter values so ordering
// relative to any other test in this binary never matters. It ends with
// the one CollectAndStop call allowed per process, so every scenario runs
// before that point.
func TestLifecycle(t *testing.T) {
	before := cc.CollectorStats()

	// Scenario: acyclic on one goroutine.
	p := cc.New(node{})
	p.Drop()

	// Scenario: clone. Per spec, Clone never bumps strong_count inline —
	// it only queues an Add entry the collector applies on its next
	// drain — so StrongCount/IsUnique are deliberately not asserted here
	// immediately after Clone; PtrEq is the only thing guaranteed
	// synchronously.
	q := cc.New(node{})
	r := q.Clone()
	assert.True(t, cc.PtrEq(q, r))
	q.Drop()
	r.Drop()

	// Scenario: three-node cycle, single goroutine.
	a := cc.New(node{})
	b := cc.New(node{})
	d := cc.New(node{})
	*a.Deref() = node{edge: b.Clone(), has: true}
	*b.Deref() = node{edge: d.Clone(), has: true}
	*d.Deref() = node{edge: a.Clone(), has: true}
	a.Drop()
	b.Drop()
	d.Drop()

	// Scenario: concurrent mutators racing an actively running cycle.
	// cc.CollectCycles nudges the collector to start a cycle at roughly
	// the same time every worker goroutine is cloning/derefing/dropping
	// its own handle — none of that should ever panic, and every Drop
	// must still be accounted for once the dust settles. This is the
	// regression case for reentrancy detection keyed off a single
	// goroutine id rather than a process-wide flag: a worker goroutine is
	// never the collector goroutine, so it must never be treated as one,
	// no matter what the collector goroutine happens to be tracing
	// concurrently.
	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			cc.CollectCycles()
			p := cc.New(node{})
			q := p.Clone()
			assert.True(t, cc.PtrEq(p, q))
			assert.NotPanics(t, func() { _ = q.Deref() })
			p.Drop()
			q.Drop()
		}()
	}
	wg.Wait()

	require.NoError(t, cc.CollectAndStop())

	after := cc.CollectorStats()
	assert.EqualValues(t, 3, after.CyclicDropped-before.CyclicDropped)
	assert.GreaterOrEqual(t, after.AcyclicDropped-before.AcyclicDropped, uint64(2+workers))
	assert.Greater(t, after.Version, before.Version)

	// Idempotent: a second call must not panic or move the counters.
	require.NoError(t, cc.CollectAndStop())
	again := cc.CollectorStats()
	assert.Equal(t, after, again)
}

func TestPtrEqDistinguishesAllocations(t *testing.T) {
	a := cc.New(node{})
	b := cc.New(node{})
	assert.False(t, cc.PtrEq(a, b))
	assert.True(t, cc.PtrEq(a, a))
}
