package box

import "github.com/alphadose/haxmap"

// registry is a lock-free, always-on record of every currently-live
// control block. It exists purely for introspection: tests assert
// invariants against it (spec §8's "for every block not currently being
// reclaimed, strong_count >= 1"), and nothing on the collection hot path
// ever reads it. Because it's lock-free, registering/deregistering a block
// adds no contention with the inbox mutex or the collector's own lists —
// the same reasoning the teacher applies when picking a channel-based
// Lock over a mutex in lock/flock to keep the fast path syscall-free.
var registry = haxmap.New[*Header, struct{}]()

// Live returns the number of control blocks currently registered.
func Live() int { return registry.Len() }

// Snapshot returns every currently-live control block header. Intended for
// tests only.
func Snapshot() []*Header {
	out := make([]*Header, 0, registry.Len())
	registry.ForEach(func(h *Header, _ struct{}) bool {
		out = append(out, h)
		return true
	})
	return out
}
