// Package ringbuffer implements the fixed-capacity circular sample store
// that decouples the realtime audio callback (producer) from the analysis
// loop (consumer).
package ringbuffer

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidRequest is returned by SnapshotRecent when asked for more
// samples than the buffer's capacity. It is a programmer error, not a
// runtime condition, so callers are expected to fail fast on it.
var ErrInvalidRequest = errors.New("ringbuffer: requested samples exceed capacity")

// Buffer is a single-producer/single-consumer circular store of float32
// PCM samples. Write is called from the audio callback; SnapshotRecent is
// called from the analysis loop. Neither blocks the other.
type Buffer struct {
	data []float32

	// producerPos is the write cursor mod capacity, touched only by the
	// producer goroutine.
	producerPos int

	// written is the monotonic count of samples ever written. It is
	// published with an atomic store after the producer updates data so
	// the consumer observes a recent (possibly slightly stale) suffix of
	// writes without taking a lock.
	written atomic.Uint64
}

// New allocates a zero-initialized buffer of the given capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &Buffer{data: make([]float32, capacity)}
}

// Capacity returns the buffer's fixed capacity in samples.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Write appends samples to the buffer. If len(samples) exceeds the
// capacity, only the last Capacity() values are retained. Write never
// fails and never blocks on a reader.
func (b *Buffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}

	capacity := len(b.data)
	total := len(samples)
	pos := b.producerPos
	if total > capacity {
		// Skip the cursor past the dropped head so it stays at
		// written mod capacity.
		pos = (pos + total - capacity) % capacity
		samples = samples[total-capacity:]
	}

	n := len(samples)

	if pos+n <= capacity {
		copy(b.data[pos:pos+n], samples)
		pos += n
	} else {
		firstPart := capacity - pos
		copy(b.data[pos:], samples[:firstPart])
		copy(b.data[:n-firstPart], samples[firstPart:])
		pos = n - firstPart
	}
	if pos == capacity {
		pos = 0
	}
	b.producerPos = pos

	b.written.Add(uint64(total))
}

// SnapshotRecent returns a fresh copy of the k most recently written
// samples, oldest first. It requires k <= Capacity(); before that many
// samples have actually been written, the head of the result is zero
// (the buffer's initial, never-overwritten state). Subsequent writes
// never mutate the returned slice.
func (b *Buffer) SnapshotRecent(k int) ([]float32, error) {
	capacity := len(b.data)
	if k < 0 || k > capacity {
		return nil, fmt.Errorf("ringbuffer: snapshot of %d samples: %w", k, ErrInvalidRequest)
	}
	if k == 0 {
		return []float32{}, nil
	}

	n := b.written.Load()
	out := make([]float32, k)

	if n < uint64(k) {
		// Fewer than k samples have ever been written, so no wrap has
		// happened yet: valid data occupies data[0:n] in chronological
		// order, and the head of out stays zero.
		deficit := k - int(n)
		copy(out[deficit:], b.data[:n])
		return out, nil
	}

	start := int((n - uint64(k)) % uint64(capacity))
	firstPart := capacity - start
	if firstPart >= k {
		copy(out, b.data[start:start+k])
	} else {
		copy(out, b.data[start:])
		copy(out[firstPart:], b.data[:k-firstPart])
	}
	return out, nil
}

// Len returns the total number of samples ever written (monotonic,
// wrapping only at the uint64 range).
func (b *Buffer) Len() uint64 {
	return b.written.Load()
}
