package vna

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/rfbench/vna-sweep/internal/scpi"
)

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.String("component", "session"))
	}
}

// Session drives one characterization run: for every IFBW value in the
// config, in list order, it writes the sweep parameters, delegates to the
// acquisition strategy for NumSweeps repetitions, and packages the collected
// traces with their metrics into a SweepResult. The session commits to one
// strategy for its lifetime; switching modes means tearing the session down
// and creating a new one.
type Session struct {
	cfg      SweepConfig
	inst     *scpi.Instrument
	strategy AcquisitionStrategy

	logger *slog.Logger
}

// NewSession creates a session over the given instrument and strategy.
func NewSession(inst *scpi.Instrument, strategy AcquisitionStrategy, cfg SweepConfig, options ...func(s *Session)) *Session {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := Session{
		cfg:      cfg,
		inst:     inst,
		strategy: strategy,
		logger:   logger,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run executes the configured passes. On failure it returns the results of
// every pass completed so far alongside the error: a caller holding N-1 good
// results does not lose them because value N failed.
func (s *Session) Run(ctx context.Context) ([]*SweepResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]*SweepResult, 0, len(s.cfg.IFBWValues))
	for _, ifbw := range s.cfg.IFBWValues {
		result, err := s.runPass(ctx, ifbw)
		if err != nil {
			return results, fmt.Errorf("pass at IFBW %s: %w", humanize.SI(float64(ifbw), "Hz"), err)
		}

		results = append(results, result)
	}

	return results, nil
}

func (s *Session) runPass(ctx context.Context, ifbw int64) (result *SweepResult, err error) {
	s.logger.Info("starting pass",
		slog.String("ifbw", humanize.SI(float64(ifbw), "Hz")),
		slog.Int("sweeps", s.cfg.NumSweeps))

	if err = s.configure(ctx, ifbw); err != nil {
		return nil, err
	}

	if err = s.strategy.BeginPass(ctx, &s.cfg); err != nil {
		return nil, fmt.Errorf("arming strategy: %w", err)
	}
	defer func() {
		if eErr := s.strategy.EndPass(); eErr != nil && err == nil {
			err = fmt.Errorf("ending pass: %w", eErr)
		}
	}()

	result = &SweepResult{
		Mode:   s.strategy.Mode(),
		IFBW:   ifbw,
		Traces: make([][]float64, 0, s.cfg.NumSweeps),
	}

	for n := 0; n < s.cfg.NumSweeps; n++ {
		sweep, aErr := s.strategy.AcquireSweep(ctx)
		if aErr != nil {
			return nil, fmt.Errorf("sweep %d of %d: %w", n+1, s.cfg.NumSweeps, aErr)
		}

		result.Durations = append(result.Durations, sweep.duration)
		if sweep.hasInterval {
			result.Intervals = append(result.Intervals, sweep.interval)
		}
		result.Traces = append(result.Traces, TraceToDB(sweep.samples))

		if result.Frequencies == nil {
			result.Frequencies = sweep.frequencies
		}
	}

	if result.Frequencies == nil {
		result.Frequencies = s.cfg.FrequencyAxis()
	}

	result.NoiseFloor = NoiseFloor(result.Traces)
	result.TraceJitter = TraceJitter(result.Traces)

	s.logger.Info("pass complete",
		slog.String("ifbw", humanize.SI(float64(ifbw), "Hz")),
		slog.Float64("noiseFloor", result.NoiseFloor),
		slog.Float64("traceJitter", result.TraceJitter))

	return result, nil
}

// configure writes every sweep parameter except the trigger, which differs
// per strategy.
func (s *Session) configure(ctx context.Context, ifbw int64) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"IF bandwidth", func(ctx context.Context) error { return s.inst.SetIFBandwidth(ctx, ifbw) }},
		{"stimulus level", func(ctx context.Context) error { return s.inst.SetStimulusLevel(ctx, s.cfg.StimulusLevel) }},
		{"averaging", func(ctx context.Context) error { return s.inst.SetAveraging(ctx, s.cfg.Averaging) }},
		{"point count", func(ctx context.Context) error { return s.inst.SetPoints(ctx, s.cfg.Points) }},
		{"start frequency", func(ctx context.Context) error { return s.inst.SetStartFrequency(ctx, s.cfg.StartFrequency) }},
		{"stop frequency", func(ctx context.Context) error { return s.inst.SetStopFrequency(ctx, s.cfg.StopFrequency) }},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("writing %s: %w", step.name, err)
		}
	}

	return nil
}
