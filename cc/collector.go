package cc

import "github.com/vesperine/cc/collector"

// Stats is a snapshot of the collector's observability counters (spec §6):
// n_acyclic_dropped, n_cyclic_dropped, collector_version, collector_state.
type Stats = collector.Stats

// CollectCycles signals the collector and returns immediately; it does not
// wait for the cycle to run. A no-op (collector started lazily) if nothing
// has ever been allocated.
func CollectCycles() {
	if c := tryGet(); c != nil {
		c.CollectCycles()
	}
}

// CollectAndStop signals the collector, waits for one final cycle to
// finish, and joins its goroutine. Idempotent: calling it again after the
// goroutine has already exited is a no-op and does not touch the counters.
// Safe to call even if nothing was ever allocated.
func CollectAndStop() error {
	if c := tryGet(); c != nil {
		return c.CollectAndStop()
	}
	return nil
}

// CollectorStats returns the current observability counters. Zero-valued
// if nothing has ever been allocated.
func CollectorStats() Stats {
	if c := tryGet(); c != nil {
		return c.Stats()
	}
	return Stats{}
}

// tryGet returns the collector singleton if one has ever been started, or
// nil — unlike collector.Get, it never panics, so callers that may run
// before the first allocation (tests, CollectAndStop on an idle process)
// can treat "never started" as a no-op instead of a fatal error.
func tryGet() *collector.Collector {
	return collector.Peek()
}
