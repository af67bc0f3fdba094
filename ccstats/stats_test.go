package ccstats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotTracksAllocAndFree(t *testing.T) {
	before := Snapshot()
	Alloc(100)
	Alloc(50)
	Free(30)

	after := Snapshot()
	assert.Equal(t, before.Allocated+150, after.Allocated)
	assert.Equal(t, before.Freed+30, after.Freed)
	assert.Equal(t, after.Allocated-after.Freed, after.Live())
}

func TestFormatIsHumanReadable(t *testing.T) {
	Alloc(1 << 20)
	s := Snapshot().Format()
	assert.True(t, strings.Contains(s, "allocated="))
	assert.True(t, strings.Contains(s, "freed="))
	assert.True(t, strings.Contains(s, "live="))
}
