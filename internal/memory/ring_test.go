package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(Entry{Agent: "research", Content: fmt.Sprintf("note-%d", i)})
	}

	assert.Equal(t, 3, r.Len())

	got := r.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "note-2", got[0].Content)
	assert.Equal(t, "note-4", got[2].Content)
}

func TestRingRecentLimits(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 4; i++ {
		r.Add(Entry{Content: fmt.Sprintf("n%d", i)})
	}

	got := r.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[0].Content)
	assert.Equal(t, "n3", got[1].Content)

	assert.Len(t, r.Recent(100), 4)
}

func TestRingDefaultCapacity(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < DefaultShortTermCap+10; i++ {
		r.Add(Entry{Content: fmt.Sprintf("n%d", i)})
	}
	assert.Equal(t, DefaultShortTermCap, r.Len())
	assert.Equal(t, "n10", r.Recent(0)[0].Content)
}

func TestRingStampsTime(t *testing.T) {
	r := NewRing(1)
	r.Add(Entry{Content: "x"})
	got := r.Recent(1)
	require.Len(t, got, 1)
	assert.False(t, got[0].Time.IsZero())
}
