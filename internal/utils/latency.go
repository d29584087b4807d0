package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded ring of recent request durations and answers
// percentile queries over them. Safe for concurrent use.
type LatencyTracker struct {
	mu     sync.RWMutex
	ring   []time.Duration
	next   int
	filled bool
}

// NewLatencyTracker creates a tracker retaining the last maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, 0, maxSize)}
}

// Observe records one duration, evicting the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.filled && len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, d)
		if len(l.ring) == cap(l.ring) {
			l.filled = true
		}
		return
	}
	l.ring[l.next] = d
	l.next = (l.next + 1) % cap(l.ring)
}

// Percentile returns the p-th percentile (0-100) of retained samples, zero
// when nothing has been observed yet.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := append([]time.Duration(nil), l.ring...)
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[int(p/100.0*float64(len(sorted)-1))]
}

// Count returns the number of retained samples.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ring)
}
