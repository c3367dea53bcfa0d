package geo

import "sync"

// TrackBuffer keeps the last few positions in a ring and reports the ground
// track from the oldest to the newest.
type TrackBuffer struct {
	mu   sync.Mutex
	ring []Point
	next int
	n    int
}

// NewTrackBuffer holds up to size positions, at least two.
func NewTrackBuffer(size int) *TrackBuffer {
	return &TrackBuffer{ring: make([]Point, max(size, 2))}
}

// Push records p and returns the track in degrees, or fallback until two
// positions are known.
func (b *TrackBuffer) Push(p Point, fallback float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := len(b.ring)
	b.ring[b.next] = p
	b.next = (b.next + 1) % size
	b.n = min(b.n+1, size)
	if b.n < 2 {
		return fallback
	}
	oldest := b.ring[(b.next-b.n+size)%size]
	return Bearing(oldest, p)
}

// Len is the number of positions held.
func (b *TrackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Reset forgets every position, e.g. after a teleport.
func (b *TrackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next, b.n = 0, 0
}
