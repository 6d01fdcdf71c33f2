package vna

import (
	"sync"
	"time"
)

// completedSweep is the snapshot of one reassembled sweep, copied out of the
// accumulator so the next sweep can begin accumulating immediately.
type completedSweep struct {
	start   time.Time // Arrival instant of point index 0
	end     time.Time // Arrival instant of point index points-1
	samples []complex128
}

// sweepAccumulator reassembles the in-progress sweep from per-point events.
// It is the only structure mutated from both the listener and controller
// contexts, so every access to the buffer and watermark goes through mu.
// The accumulator is created when an IFBW pass begins, reset at the start of
// each subsequent sweep within the pass, and discarded when the pass ends.
type sweepAccumulator struct {
	mu       sync.Mutex
	points   int
	samples  []complex128
	sawFirst bool
	start    time.Time
}

func newSweepAccumulator(points int) *sweepAccumulator {
	return &sweepAccumulator{
		points:  points,
		samples: make([]complex128, points),
	}
}

// record stores one point and reports a completed sweep when the point with
// index points-1 arrives. That index is the single authoritative completion
// signal: duplicate or dropped indices never trigger completion on their own.
// A sweep whose last point arrives before index 0 was ever observed is a
// partial leading sweep; it is discarded and reported via desync.
func (a *sweepAccumulator) record(p StreamPoint, now time.Time) (sweep completedSweep, completed, desync bool) {
	value, ok := p.S11()
	if !ok || p.Index >= a.points {
		return completedSweep{}, false, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if p.Index == 0 && !a.sawFirst {
		a.sawFirst = true
		a.start = now
	}

	a.samples[p.Index] = value

	if p.Index != a.points-1 {
		return completedSweep{}, false, false
	}

	if !a.sawFirst {
		a.reset()
		return completedSweep{}, false, true
	}

	// Copy out under the lock; dB conversion happens on the copy, off the
	// critical section.
	sweep = completedSweep{
		start:   a.start,
		end:     now,
		samples: append([]complex128(nil), a.samples...),
	}

	a.reset()
	return sweep, true, false
}

func (a *sweepAccumulator) reset() {
	clear(a.samples)
	a.sawFirst = false
	a.start = time.Time{}
}
