// Package intrusive implements the doubly-linked, head-insertion lists the
// collector threads possible_cycles, root_list, and non_root_list through
// (spec §4.2). Each list is single-owner — only the collector goroutine
// ever touches one — so no internal locking is needed; the zero value is
// an empty list.
package intrusive

import "github.com/vesperine/cc/box"

// List is an intrusive doubly-linked list of *box.Header, threaded through
// the header's own next/prev fields so membership changes never allocate.
type List struct {
	head *box.Header
	len  int
}

// Len returns the number of elements currently linked.
func (l *List) Len() int { return l.len }

// Add pushes ptr to the head of the list. O(1).
func (l *List) Add(ptr *box.Header) {
	ptr.SetPrev(nil)
	ptr.SetNext(l.head)
	if l.head != nil {
		l.head.SetPrev(ptr)
	}
	l.head = ptr
	l.len++
}

// Remove unlinks ptr via its own prev/next pointers. O(1). ptr must
// currently be a member of l; behavior is undefined otherwise.
func (l *List) Remove(ptr *box.Header) {
	if prev := ptr.Prev(); prev != nil {
		prev.SetNext(ptr.Next())
	} else {
		l.head = ptr.Next()
	}
	if next := ptr.Next(); next != nil {
		next.SetPrev(ptr.Prev())
	}
	ptr.SetNext(nil)
	ptr.SetPrev(nil)
	l.len--
}

// PopFront removes and returns the head element, or nil if l is empty.
// Unlike Drain, this only touches one element, so it's safe to call
// interleaved with recursive Remove calls that a Trace callback triggers
// against the very same list (see collector/baconrajan.go).
func (l *List) PopFront() *box.Header {
	h := l.head
	if h != nil {
		l.Remove(h)
	}
	return h
}

// Contains reports whether ptr is linked in l. O(n); debug/test use only.
func (l *List) Contains(ptr *box.Header) bool {
	for cur := l.head; cur != nil; cur = cur.Next() {
		if cur == ptr {
			return true
		}
	}
	return false
}

// Drain detaches every element and returns them head-first, leaving l
// empty.
func (l *List) Drain() []*box.Header {
	out := make([]*box.Header, 0, l.len)
	for cur := l.head; cur != nil; {
		next := cur.Next()
		cur.SetNext(nil)
		cur.SetPrev(nil)
		out = append(out, cur)
		cur = next
	}
	l.head = nil
	l.len = 0
	return out
}

// Each iterates the list head-first, stopping early if fn returns false.
// It is safe for fn to Remove the current element, as Each captures next
// before invoking fn.
func (l *List) Each(fn func(*box.Header) bool) {
	for cur := l.head; cur != nil; {
		next := cur.Next()
		if !fn(cur) {
			return
		}
		cur = next
	}
}
