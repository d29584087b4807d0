package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentiles(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		50 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		30 * time.Millisecond,
	} {
		tracker.Observe(d)
	}

	if tracker.Count() != 5 {
		t.Fatalf("Count = %d, want 5", tracker.Count())
	}
	if got := tracker.Percentile(0); got != 10*time.Millisecond {
		t.Errorf("p0 = %v", got)
	}
	if got := tracker.Percentile(100); got != 50*time.Millisecond {
		t.Errorf("p100 = %v", got)
	}
	if got := tracker.Percentile(50); got != 30*time.Millisecond {
		t.Errorf("p50 = %v", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(4)
	if got := tracker.Percentile(95); got != 0 {
		t.Errorf("empty tracker p95 = %v, want 0", got)
	}
}

func TestLatencyTrackerEvictsOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if tracker.Count() != 3 {
		t.Fatalf("Count = %d, want 3", tracker.Count())
	}
	// Only the last three samples (8ms, 9ms, 10ms) remain.
	if got := tracker.Percentile(0); got != 8*time.Millisecond {
		t.Errorf("oldest retained = %v, want 8ms", got)
	}
}
