package box

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateInit(t *testing.T) {
	var s state
	s.init(1, false)
	assert.Equal(t, uint32(1), s.counter())
	assert.Equal(t, uint32(0), s.tracingCounter())
	assert.Equal(t, NonMarked, s.currentMark())
	assert.True(t, s.needsFinalization())
	assert.False(t, s.isInPossibleCycles())
}

func TestIncrementDecrementCounter(t *testing.T) {
	var s state
	s.init(1, false)
	require.NoError(t, s.incrementCounter())
	assert.Equal(t, uint32(2), s.counter())
	require.NoError(t, s.decrementCounter())
	require.NoError(t, s.decrementCounter())
	assert.Equal(t, uint32(0), s.counter())
}

func TestDecrementUnderflow(t *testing.T) {
	var s state
	s.init(0, false)
	assert.ErrorIs(t, s.decrementCounter(), ErrUnderflow)
}

func TestIncrementOverflow(t *testing.T) {
	var s state
	s.init(MaxCount, false)
	assert.ErrorIs(t, s.incrementCounter(), ErrOverflow)
}

func TestMarkAndCyclesBitsAreIndependentOfCounters(t *testing.T) {
	var s state
	s.init(5, false)
	require.NoError(t, s.incrementCounter())
	s.mark(PossibleCycles)
	s.setInPossibleCycles(true)
	s.incrementTracingCounter()
	s.incrementTracingCounter()

	assert.Equal(t, uint32(6), s.counter())
	assert.Equal(t, uint32(2), s.tracingCounter())
	assert.Equal(t, PossibleCycles, s.currentMark())
	assert.True(t, s.isInPossibleCycles())

	s.resetTracingCounter()
	assert.Equal(t, uint32(0), s.tracingCounter())
	assert.Equal(t, uint32(6), s.counter(), "resetting tracing_count must not disturb strong_count")
}

func TestFinalizedBitIndependentOfEverythingElse(t *testing.T) {
	var s state
	s.init(1, true)
	assert.False(t, s.needsFinalization())
	s.setFinalized(false)
	assert.True(t, s.needsFinalization())
	s.mark(Dirty)
	assert.True(t, s.needsFinalization(), "mark change must not touch the finalized bit")
}
