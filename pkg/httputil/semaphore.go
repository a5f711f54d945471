package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore caps concurrent operations. The gateway runs one over inbound
// turn processing, shedding turns beyond capacity with a 429, and one over
// report delivery, where callers wait with a deadline instead.
type Semaphore struct {
	sem      chan struct{}
	rejected atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity. Non-positive
// capacities fall back to 100.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{sem: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking. A false return means the caller
// should shed the operation; the rejection is counted.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		s.rejected.Add(1)
		return false
	}
}

// Acquire blocks for a slot until the context expires.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by TryAcquire or Acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.sem:
	default:
	}
}

// Stats reports the occupancy and rejection counters surfaced on /stats.
func (s *Semaphore) Stats() SemaphoreStats {
	return SemaphoreStats{
		Capacity:  cap(s.sem),
		InUse:     len(s.sem),
		Available: cap(s.sem) - len(s.sem),
		Rejected:  s.rejected.Load(),
	}
}

// SemaphoreStats is the wire shape of a semaphore's counters.
type SemaphoreStats struct {
	Capacity  int   `json:"capacity"`
	InUse     int   `json:"in_use"`
	Available int   `json:"available"`
	Rejected  int64 `json:"rejected"`
}
