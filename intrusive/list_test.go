package intrusive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperine/cc/box"
)

type leaf struct{}

func (leaf) Trace(*box.TraceCtx)   {}
func (leaf) MakeCopy(*box.CopyCtx) {}

func newHeader(t *testing.T) *box.Header {
	t.Helper()
	b := box.New(leaf{}, false)
	return &b.Header
}

func TestAddIsLIFO(t *testing.T) {
	var l List
	a, b, c := newHeader(t), newHeader(t), newHeader(t)
	l.Add(a)
	l.Add(b)
	l.Add(c)
	require.Equal(t, 3, l.Len())
	assert.Equal(t, []*box.Header{c, b, a}, l.Drain())
	assert.Equal(t, 0, l.Len())
}

func TestRemoveMiddle(t *testing.T) {
	var l List
	a, b, c := newHeader(t), newHeader(t), newHeader(t)
	l.Add(a)
	l.Add(b)
	l.Add(c)
	l.Remove(b)
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.Contains(b))
	assert.Equal(t, []*box.Header{c, a}, l.Drain())
}

func TestPopFrontEmpty(t *testing.T) {
	var l List
	assert.Nil(t, l.PopFront())
}

func TestPopFrontDrainsOneAtATime(t *testing.T) {
	var l List
	a, b := newHeader(t), newHeader(t)
	l.Add(a)
	l.Add(b)
	require.Equal(t, b, l.PopFront())
	require.Equal(t, 1, l.Len())
	require.Equal(t, a, l.PopFront())
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.PopFront())
}

func TestPopFrontSafeWhileRemovingOtherElements(t *testing.T) {
	// Regression for the corruption Drain-then-iterate would cause: a
	// callback triggered while processing the popped head removes an
	// unrelated, still-linked element elsewhere in the list.
	var l List
	a, b, c := newHeader(t), newHeader(t), newHeader(t)
	l.Add(a)
	l.Add(b)
	l.Add(c)

	r := l.PopFront()
	require.Equal(t, c, r)
	l.Remove(a) // simulate a trace callback reaching 'a' before it's popped
	require.Equal(t, 1, l.Len())
	assert.Equal(t, b, l.PopFront())
	assert.Equal(t, 0, l.Len())
}
