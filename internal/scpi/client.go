// Package scpi implements the synchronous SCPI command channel to the
// instrument over a raw TCP socket. The instrument's SCPI parser is strictly
// serial: every query must complete before the next command is issued, so the
// connection serializes all traffic behind a single mutex.
package scpi

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
	"time"
)

const (
	// DefaultDialTimeout is the default timeout for establishing the
	// control connection.
	DefaultDialTimeout = 5 * time.Second

	// DefaultIOTimeout is the default deadline applied to a single send
	// or query when the caller's context carries no deadline of its own.
	DefaultIOTimeout = 10 * time.Second
)

// ErrTransport is returned (wrapped) for any I/O failure on the command
// channel. A transport failure invalidates the session; callers must not
// retry commands on a connection that reported it.
var ErrTransport = errors.New("scpi: transport failure")

// Client is the command channel contract consumed by the acquisition engine:
// fire-and-forget writes and blocking single-line queries.
type Client interface {
	Send(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

// WithLogger sets the logger for the connection
func WithLogger(logger *slog.Logger) func(c *Conn) {
	return func(c *Conn) {
		c.logger = logger.With(slog.String("channel", "scpi"))
	}
}

// WithIOTimeout sets the per-command I/O deadline used when the caller's
// context has no deadline.
func WithIOTimeout(timeout time.Duration) func(c *Conn) {
	return func(c *Conn) {
		c.ioTimeout = timeout
	}
}

// Conn is a Client over a persistent TCP connection to the instrument's
// SCPI port.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	mu        sync.Mutex
	ioTimeout time.Duration
	logger    *slog.Logger
}

// Dial connects to the instrument's SCPI control port.
func Dial(addr string, options ...func(c *Conn)) (*Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, DefaultDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %w", ErrTransport, addr, err)
	}

	return NewConn(conn, options...), nil
}

// NewConn wraps an established connection. Ownership of conn transfers to
// the returned Conn.
func NewConn(conn net.Conn, options ...func(c *Conn)) *Conn {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	c := Conn{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		ioTimeout: DefaultIOTimeout,
		logger:    logger,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Send writes a command that expects no reply.
func (c *Conn) Send(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(ctx, cmd)
}

// Query writes a command and blocks for one newline-terminated reply.
// The reply is returned with surrounding whitespace trimmed.
func (c *Conn) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, cmd); err != nil {
		return "", err
	}

	if err := c.conn.SetReadDeadline(c.deadline(ctx)); err != nil {
		return "", fmt.Errorf("%w: setting read deadline: %w", ErrTransport, err)
	}

	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: reading reply to %q: %w", ErrTransport, cmd, err)
	}

	reply = strings.TrimSpace(reply)
	c.logger.Debug("query", slog.String("cmd", cmd), slog.String("reply", reply))
	return reply, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) write(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return fmt.Errorf("%w: setting write deadline: %w", ErrTransport, err)
	}
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("%w: writing %q: %w", ErrTransport, cmd, err)
	}
	return nil
}

func (c *Conn) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(c.ioTimeout)
}
