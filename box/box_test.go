package box

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct {
	n int
}

func (leaf) Trace(*TraceCtx)   {}
func (leaf) MakeCopy(*CopyCtx) {}

func TestNewRegistersInRegistry(t *testing.T) {
	before := Live()
	b := New(leaf{n: 7}, false)
	require.Equal(t, before+1, Live())
	assert.Equal(t, uint32(1), b.Header.Counter())
	assert.True(t, b.Header.NeedsFinalization())
	assert.Contains(t, Snapshot(), &b.Header)
}

func TestDeallocateRemovesFromRegistry(t *testing.T) {
	b := New(leaf{n: 1}, false)
	before := Live()
	b.Header.Deallocate()
	assert.Equal(t, before-1, Live())
	assert.NotContains(t, Snapshot(), &b.Header)
	assert.Equal(t, 0, b.Value.n, "deallocate must zero the payload")
}

func TestLayoutReflectsPayloadSize(t *testing.T) {
	b := New(leaf{}, false)
	l := b.Header.Layout()
	assert.Greater(t, l.Size, uintptr(0))
	assert.Greater(t, l.Align, uintptr(0))
}
