package collector

import (
	"github.com/vesperine/cc/box"
	"github.com/vesperine/cc/intrusive"
)

// baconRajan runs the three-phase trial-deletion algorithm (spec §4.6) over
// whatever is currently queued in c.possibleCycles. Every list here is
// consumed one element at a time via PopFront rather than bulk-drained
// up front, because a Trace callback reached during this same pass can
// remove a *different*, not-yet-visited element from the very list being
// iterated; PopFront leaves every element genuinely linked until the
// instant it's visited, so such a removal never corrupts list bookkeeping.
func (c *Collector) baconRajan() {
	var rootList, nonRootList intrusive.List

	for c.possibleCycles.Len() > 0 {
		r := c.possibleCycles.PopFront()
		r.SetInPossibleCycles(false)
		if r.IsTraced() {
			// Already visited as somebody else's child during this loop.
			continue
		}
		rootList.Add(r)
		r.ResetTracingCounter()
		r.SetMark(box.Traced)
		c.trace(r, &box.TraceCtx{Visit: func(child *box.Header) {
			c.countingVisit(child, &rootList, &nonRootList)
		}})
	}

	for rootList.Len() > 0 {
		r := rootList.PopFront()
		r.SetMark(box.NonMarked)
		c.trace(r, &box.TraceCtx{Visit: func(child *box.Header) {
			c.rootTracingVisit(child, &rootList, &nonRootList)
		}})
	}

	c.reclaimGarbage(&nonRootList)
}

// countingVisit is Bacon-Rajan's Counting phase, applied to one outgoing
// edge h -> child. Every child's tracing_count is incremented once per
// incoming traced edge; once it equals strong_count, every reference to
// the child originates from inside the candidate subgraph, so it moves
// from root_list (externally reachable, for now) to non_root_list
// (garbage, unless later proven otherwise).
func (c *Collector) countingVisit(child *box.Header, rootList, nonRootList *intrusive.List) {
	if !child.IsTraced() {
		if child.IsInPossibleCycles() {
			c.possibleCycles.Remove(child)
			child.SetInPossibleCycles(false)
		}
		child.ResetTracingCounter()
		child.IncrementTracingCounter()
		if child.TracingCounter() == child.Counter() {
			nonRootList.Add(child)
		} else {
			rootList.Add(child)
		}
		child.SetMark(box.Traced)
		c.trace(child, &box.TraceCtx{Visit: func(grandchild *box.Header) {
			c.countingVisit(grandchild, rootList, nonRootList)
		}})
		return
	}
	child.IncrementTracingCounter()
	if child.TracingCounter() == child.Counter() {
		rootList.Remove(child)
		nonRootList.Add(child)
	}
}

// rootTracingVisit is Bacon-Rajan's RootTracing phase: starting from every
// surviving root_list member, walk the graph again and clear Traced back
// to NonMarked on anything reachable, proving it's not garbage regardless
// of which scratch list it landed in during Counting.
func (c *Collector) rootTracingVisit(child *box.Header, rootList, nonRootList *intrusive.List) {
	if !child.IsTraced() {
		return
	}
	child.SetMark(box.NonMarked)
	if child.TracingCounter() == child.Counter() {
		nonRootList.Remove(child)
	} else {
		rootList.Remove(child)
	}
	c.trace(child, &box.TraceCtx{Visit: func(grandchild *box.Header) {
		c.rootTracingVisit(grandchild, rootList, nonRootList)
	}})
}

// reclaimGarbage is Bacon-Rajan's phase 3: whatever is left in non_root_list
// once RootTracing completes is confirmed garbage. The three passes are
// kept strictly separate — finalize every block, then release every
// outgoing edge, then deallocate every block — so a Finalize or Trace
// implementation can safely observe any sibling in the same batch without
// racing its teardown.
func (c *Collector) reclaimGarbage(nonRootList *intrusive.List) {
	garbage := nonRootList.Drain()
	if len(garbage) == 0 {
		return
	}

	skip := make(map[*box.Header]struct{}, len(garbage))
	for _, h := range garbage {
		skip[h] = struct{}{}
	}

	for _, h := range garbage {
		if h.NeedsFinalization() {
			c.safeFinalize(h)
		}
	}
	for _, h := range garbage {
		c.release(h, skip)
	}
	for _, h := range garbage {
		h.Deallocate()
		c.cyclicDropped.Add(1)
	}
}
