package vna

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rfbench/vna-sweep/internal/scpi"
)

// WithStreamedLogger sets the logger for the strategy
func WithStreamedLogger(logger *slog.Logger) func(s *StreamedStrategy) {
	return func(s *StreamedStrategy) {
		s.logger = logger.With(slog.String("strategy", ModeStreamed.String()))
	}
}

// StreamedStrategy implements continuous acquisition: it consumes the
// listener's point stream, reassembles complete sweeps in a lock-guarded
// accumulator, and hands completed snapshots to the controller over a
// buffered channel. The listener connection is shared across the life of the
// session (one connection, many sweeps); the reassembly goroutine is the only
// writer into the accumulator, the controller only ever sees copied-out
// snapshots.
type StreamedStrategy struct {
	inst     *scpi.Instrument
	listener *Listener
	opts     Options

	mu        sync.Mutex
	acc       *sweepAccumulator
	completed chan completedSweep
	lastEnd   time.Time
	running   bool

	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewStreamedStrategy creates a streamed acquisition strategy over the given
// instrument and point listener. The strategy takes over the listener's
// lifecycle: EndPass of the final pass or Close tears it down.
func NewStreamedStrategy(inst *scpi.Instrument, listener *Listener, opts Options, options ...func(s *StreamedStrategy)) *StreamedStrategy {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := StreamedStrategy{
		inst:     inst,
		listener: listener,
		opts:     opts,
		logger:   logger,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func (s *StreamedStrategy) Mode() Mode {
	return ModeStreamed
}

// BeginPass selects continuous acquisition, creates a fresh accumulator for
// the pass, and (on the first pass) starts the listener and the reassembly
// goroutine.
func (s *StreamedStrategy) BeginPass(ctx context.Context, cfg *SweepConfig) error {
	if err := s.inst.SetSingleAcquisition(ctx, false); err != nil {
		return fmt.Errorf("selecting continuous acquisition: %w", err)
	}
	if err := s.inst.RunAcquisition(ctx); err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}

	s.mu.Lock()
	s.acc = newSweepAccumulator(cfg.Points)
	s.completed = make(chan completedSweep, max(s.opts.CompletedBuffer, 1))
	s.lastEnd = time.Time{}
	started := s.running
	s.running = true
	s.mu.Unlock()

	if started {
		return nil
	}

	if err := s.listener.Start(ctx); err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}

	s.wg.Add(1)
	go s.reassemble()

	return nil
}

// AcquireSweep blocks until the reassembly goroutine reports the next
// completed sweep. The sweep duration is the gap between the arrival of the
// sweep's first and last points; the inter-sweep interval is the gap between
// consecutive completions.
func (s *StreamedStrategy) AcquireSweep(ctx context.Context) (acquiredSweep, error) {
	s.mu.Lock()
	completed := s.completed
	s.mu.Unlock()

	timeout := time.NewTimer(s.opts.SweepTimeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return acquiredSweep{}, ctx.Err()

	case <-timeout.C:
		return acquiredSweep{}, fmt.Errorf("%w: no completed sweep within %s", ErrAcquisitionTimeout, s.opts.SweepTimeout)

	case sweep, ok := <-completed:
		if !ok {
			if err := s.listener.Err(); err != nil {
				return acquiredSweep{}, fmt.Errorf("point stream failed: %w", err)
			}
			return acquiredSweep{}, ErrListenerClosed
		}

		result := acquiredSweep{
			duration: sweep.end.Sub(sweep.start),
			samples:  sweep.samples,
		}

		s.mu.Lock()
		if !s.lastEnd.IsZero() {
			result.interval = sweep.end.Sub(s.lastEnd)
			result.hasInterval = true
		}
		s.lastEnd = sweep.end
		s.mu.Unlock()

		s.logger.Debug("sweep reassembled",
			slog.Duration("duration", result.duration),
			slog.Int("points", len(result.samples)))

		return result, nil
	}
}

// EndPass stops acquisition on the instrument; the listener connection stays
// up for the next pass.
func (s *StreamedStrategy) EndPass() error {
	// StopAcquisition keeps the stream quiet between passes so points from
	// the old IFBW never bleed into the next accumulator.
	return s.inst.StopAcquisition(context.Background())
}

// Close tears down the listener and waits for the reassembly goroutine.
// After Close the strategy cannot be reused; switching modes requires a new
// session.
func (s *StreamedStrategy) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *StreamedStrategy) reassemble() {
	defer s.wg.Done()

	for point := range s.listener.Points() {
		now := time.Now()

		s.mu.Lock()
		acc, completed := s.acc, s.completed
		s.mu.Unlock()

		sweep, done, desync := acc.record(point, now)
		if desync {
			s.logger.Warn(ErrStreamDesync.Error(), slog.Int("lastIndex", point.Index))
			continue
		}
		if !done {
			continue
		}

		select {
		case completed <- sweep:
		default:
			// Controller fell behind; drop the oldest to keep the
			// stream draining.
			select {
			case <-completed:
			default:
			}
			completed <- sweep
		}
	}

	s.mu.Lock()
	close(s.completed)
	s.running = false
	s.mu.Unlock()
}
