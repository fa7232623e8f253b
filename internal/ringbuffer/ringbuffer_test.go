package ringbuffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSnapshotRecentRejectsOversizedRequest(t *testing.T) {
	b := New(8)
	_, err := b.SnapshotRecent(9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestSnapshotRecentNeverMutatedByLaterWrites(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4})

	snap, err := b.SnapshotRecent(4)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, snap)

	b.Write([]float32{99, 99, 99, 99})
	assert.Equal(t, []float32{1, 2, 3, 4}, snap, "snapshot must be a copy, immune to subsequent writes")
}

func TestWrapAround(t *testing.T) {
	b := New(5)
	b.Write([]float32{0, 1, 2})
	b.Write([]float32{3, 4, 5})

	got, err := b.SnapshotRecent(5)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)

	got3, err := b.SnapshotRecent(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, got3)
}

func TestSnapshotBeforeBufferFull(t *testing.T) {
	b := New(5)
	b.Write([]float32{7, 8})

	got, err := b.SnapshotRecent(5)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 7, 8}, got)
}

func TestSnapshotExactlyAtCapacity(t *testing.T) {
	b := New(4)
	b.Write([]float32{10, 20, 30, 40})

	got, err := b.SnapshotRecent(4)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 20, 30, 40}, got)
}

func TestLargerWriteThanCapacityKeepsOnlyTail(t *testing.T) {
	b := New(3)
	b.Write([]float32{1, 2, 3, 4, 5})

	got, err := b.SnapshotRecent(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, got)
}

// TestRoundTripMatchesLastKWritten is the property from spec §8: writing a
// sequence of total length >= k to a fresh buffer of capacity C >= k, then
// reading k samples, returns exactly the last k elements written.
func TestRoundTripMatchesLastKWritten(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		total := rapid.IntRange(capacity, capacity*4).Draw(t, "total")
		k := rapid.IntRange(0, capacity).Draw(t, "k")

		sequence := make([]float32, total)
		for i := range sequence {
			sequence[i] = float32(i)
		}

		b := New(capacity)
		// Feed it in randomly sized chunks to exercise the wrap logic
		// from arbitrary write boundaries.
		for pos := 0; pos < total; {
			chunk := rapid.IntRange(1, total-pos).Draw(t, "chunk")
			b.Write(sequence[pos : pos+chunk])
			pos += chunk
		}

		got, err := b.SnapshotRecent(k)
		require.NoError(t, err)

		want := sequence[total-k:]
		assert.Equal(t, want, got)
	})
}
