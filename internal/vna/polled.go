package vna

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rfbench/vna-sweep/internal/scpi"
)

// WithPolledLogger sets the logger for the strategy
func WithPolledLogger(logger *slog.Logger) func(s *PolledStrategy) {
	return func(s *PolledStrategy) {
		s.logger = logger.With(slog.String("strategy", ModePolled.String()))
	}
}

// PolledStrategy implements single-sweep acquisition: trigger, poll the
// finished flag at a fixed interval, fetch the trace on completion. Each
// sweep walks Configured, Triggered, Polling, Finished. The trigger is the
// stop-frequency write: on this firmware re-sending the stop frequency both
// confirms the value and starts a new sweep cycle, so back-to-back sweeps
// re-arm without redundant parameter writes.
type PolledStrategy struct {
	inst *scpi.Instrument
	opts Options

	stopFrequency int64
	armedAt       time.Time

	logger *slog.Logger
}

// NewPolledStrategy creates a polled acquisition strategy over the given
// instrument.
func NewPolledStrategy(inst *scpi.Instrument, opts Options, options ...func(s *PolledStrategy)) *PolledStrategy {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := PolledStrategy{
		inst:   inst,
		opts:   opts,
		logger: logger,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func (s *PolledStrategy) Mode() Mode {
	return ModePolled
}

// BeginPass selects single-sweep acquisition and triggers the first sweep.
func (s *PolledStrategy) BeginPass(ctx context.Context, cfg *SweepConfig) error {
	s.stopFrequency = cfg.StopFrequency

	if err := s.inst.SetSingleAcquisition(ctx, true); err != nil {
		return fmt.Errorf("selecting single acquisition: %w", err)
	}

	return s.trigger(ctx)
}

// AcquireSweep polls the finished flag until completion, then fetches the
// trace and re-arms the next sweep. The measured duration stops at the
// instant the finished poll comes back true: trace retrieval time is
// deliberately excluded so transport latency on the bulk read never
// inflates the timing metric.
func (s *PolledStrategy) AcquireSweep(ctx context.Context) (acquiredSweep, error) {
	duration, err := s.pollFinished(ctx)
	if err != nil {
		return acquiredSweep{}, err
	}

	trace, err := s.inst.TraceData(ctx, "S11")
	if err != nil {
		return acquiredSweep{}, fmt.Errorf("fetching trace: %w", err)
	}

	frequencies := make([]float64, len(trace))
	samples := make([]complex128, len(trace))
	for n, p := range trace {
		frequencies[n] = p.Frequency
		samples[n] = p.Value
	}

	// Re-arm immediately so the next sweep starts on the same configuration.
	if err = s.trigger(ctx); err != nil {
		return acquiredSweep{}, err
	}

	s.logger.Debug("sweep finished",
		slog.Duration("duration", duration),
		slog.Int("points", len(samples)))

	return acquiredSweep{
		duration:    duration,
		frequencies: frequencies,
		samples:     samples,
	}, nil
}

func (s *PolledStrategy) EndPass() error {
	return nil
}

func (s *PolledStrategy) trigger(ctx context.Context) error {
	if err := s.inst.SetStopFrequency(ctx, s.stopFrequency); err != nil {
		return fmt.Errorf("triggering sweep: %w", err)
	}

	s.armedAt = time.Now()
	return nil
}

func (s *PolledStrategy) pollFinished(ctx context.Context) (time.Duration, error) {
	deadline := s.armedAt.Add(s.opts.SweepTimeout)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()

		case <-ticker.C:
			finished, err := s.inst.AcquisitionFinished(ctx)
			if err != nil {
				return 0, fmt.Errorf("polling acquisition state: %w", err)
			}
			if finished {
				return time.Since(s.armedAt), nil
			}
			if time.Now().After(deadline) {
				return 0, fmt.Errorf("%w: sweep not finished after %s", ErrAcquisitionTimeout, s.opts.SweepTimeout)
			}
		}
	}
}
