package vna

import (
	"context"
	"time"
)

const (
	// DefaultPollInterval is the default spacing between "finished?"
	// queries in polled mode.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultSweepTimeout is the default hard ceiling on one sweep.
	DefaultSweepTimeout = 60 * time.Second

	// DefaultCompletedBuffer is the default capacity of the completed
	// sweep channel in streamed mode.
	DefaultCompletedBuffer = 4
)

// Options carries the tunable timings of a session. They are threaded
// explicitly so that concurrent sessions (and tests) can run with different
// values.
type Options struct {
	PollInterval    time.Duration // Polled mode: spacing between finished? queries
	SweepTimeout    time.Duration // Hard ceiling on a single sweep
	CompletedBuffer int           // Streamed mode: completed sweep channel capacity
}

// DefaultOptions returns the recommended production timings.
func DefaultOptions() Options {
	return Options{
		PollInterval:    DefaultPollInterval,
		SweepTimeout:    DefaultSweepTimeout,
		CompletedBuffer: DefaultCompletedBuffer,
	}
}

// acquiredSweep is one sweep as handed back by a strategy: raw complex
// samples plus the timing observed while acquiring them.
type acquiredSweep struct {
	duration    time.Duration
	interval    time.Duration // end-to-end gap since the previous sweep
	hasInterval bool
	frequencies []float64 // device-reported axis, polled mode only
	samples     []complex128
}

// AcquisitionStrategy drives one sweep at a time for the session. The
// session selects a concrete strategy once at construction and never
// inspects its type; within a pass, sweep N is fully assembled before
// sweep N+1 begins.
type AcquisitionStrategy interface {
	// Mode identifies the strategy in results.
	Mode() Mode

	// BeginPass arms the strategy for a pass over the given config. The
	// session has already written every sweep parameter except the
	// trigger, which differs per strategy.
	BeginPass(ctx context.Context, cfg *SweepConfig) error

	// AcquireSweep drives one sweep to completion.
	AcquireSweep(ctx context.Context) (acquiredSweep, error)

	// EndPass releases per-pass state.
	EndPass() error
}
