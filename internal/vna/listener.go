package vna

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ParseErrorsThreshold defines the number of consecutive decode errors
	// allowed on the point stream
	ParseErrorsThreshold = 5

	// DefaultStreamDialTimeout is the default timeout for establishing the
	// streaming connection.
	DefaultStreamDialTimeout = 5 * time.Second
)

// WithListenerLogger sets the logger for the listener
func WithListenerLogger(logger *slog.Logger) func(l *Listener) {
	return func(l *Listener) {
		l.logger = logger.With(slog.String("channel", "stream"))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive decode errors
func WithParseErrorsThreshold(threshold uint8) func(l *Listener) {
	return func(l *Listener) {
		l.parseErrorsThreshold = threshold
	}
}

// Listener maintains the long-lived connection to the instrument's
// push-telemetry port and produces StreamPoints in arrival order, one per
// newline-delimited JSON record. Decoding happens on the listener's own
// goroutine so that blocking socket reads never stall the component deciding
// whether a sweep has finished. Closing the listener closes the socket, which
// unblocks the reader and terminates the point channel within bounded time.
type Listener struct {
	conn   net.Conn
	points chan StreamPoint

	isListening atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu  sync.Mutex
	err error

	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// DialListener connects to the instrument's streaming port.
func DialListener(addr string, options ...func(l *Listener)) (*Listener, error) {
	conn, err := net.DialTimeout("tcp", addr, DefaultStreamDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing stream %s: %w", addr, err)
	}

	return NewListener(conn, options...), nil
}

// NewListener wraps an established streaming connection. Ownership of conn
// transfers to the returned Listener.
func NewListener(conn net.Conn, options ...func(l *Listener)) *Listener {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	l := Listener{
		conn:                 conn,
		points:               make(chan StreamPoint),
		parseErrorsThreshold: ParseErrorsThreshold,
		logger:               logger,
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Start launches the read goroutine. The point channel is closed when the
// stream terminates, for any reason; Err reports the terminal error, if any.
func (l *Listener) Start(ctx context.Context) error {
	if l.isListening.Load() {
		return fmt.Errorf("listener is already running")
	}

	l.isListening.Store(true)
	ctx, l.cancel = context.WithCancel(ctx)

	// Closing the socket is the only way to unblock a pending read.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		<-ctx.Done()
		_ = l.conn.Close()
	}()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.points)

		l.logger.Info("starting point stream")
		l.setErr(l.readLoop(ctx))
		l.logger.Info("point stream stopped")

		l.cancel() // release the socket watcher
	}()

	return nil
}

// Points returns the ordered point stream. The channel is closed when the
// stream terminates.
func (l *Listener) Points() <-chan StreamPoint {
	return l.points
}

// Err returns the terminal stream error, or nil after a deliberate Close.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close cancels the stream and waits for the read goroutine to exit.
// It is safe to call Close multiple times.
func (l *Listener) Close() {
	if !l.isListening.Load() {
		_ = l.conn.Close()
		return
	}

	l.cancel()
	l.wg.Wait()
	l.isListening.Store(false)
}

func (l *Listener) readLoop(ctx context.Context) error {
	var parseErrors uint8

	scanner := bufio.NewScanner(l.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		point, err := parsePoint(line)
		if err != nil {
			parseErrors++
			l.logger.Warn(fmt.Sprintf("error decoding point: %s", err.Error()), slog.String("line", line))

			if parseErrors >= l.parseErrorsThreshold {
				return ErrTooManyParseErrors
			}

			continue
		}

		parseErrors = 0 // reset counter

		select {
		case l.points <- point:
		case <-ctx.Done():
			return nil
		}
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.EOF) || isClosedConn(err) {
		if ctx.Err() != nil {
			return nil // deliberate close
		}
		return fmt.Errorf("%w: stream connection terminated", ErrListenerClosed)
	}

	return fmt.Errorf("%w: reading stream: %w", ErrListenerClosed, err)
}

func (l *Listener) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
