package scpi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// startFakeInstrument serves a minimal SCPI endpoint on a loopback listener:
// queries get a canned reply, set commands get none.
func startFakeInstrument(t *testing.T, replies map[string]string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			if !strings.Contains(cmd, "?") {
				continue
			}
			reply, ok := replies[cmd]
			if !ok {
				reply = "ERROR"
			}
			fmt.Fprintf(conn, "%s\n", reply)
		}
	}()

	return ln.Addr().String()
}

func TestConn_QueryAndSend(t *testing.T) {
	addr := startFakeInstrument(t, map[string]string{
		"*IDN?":         "rfbench,VNA0432,026433,v1.6",
		":VNA:ACQ:FIN?": " TRUE ",
	})

	conn, err := Dial(addr)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	if err = conn.Send(ctx, ":DEV:MODE VNA"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	idn, err := conn.Query(ctx, "*IDN?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if idn != "rfbench,VNA0432,026433,v1.6" {
		t.Errorf("Unexpected identification: %q", idn)
	}

	// Replies come back trimmed.
	fin, err := conn.Query(ctx, ":VNA:ACQ:FIN?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if fin != "TRUE" {
		t.Errorf("Expected trimmed reply %q, got %q", "TRUE", fin)
	}
}

func TestConn_TransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close() // drop the connection without replying
	}()

	conn, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	ln.Close()

	_, err = conn.Query(context.Background(), "*IDN?")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
}

func TestConn_QueryTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(time.Second) // never reply
	}()

	conn, err := Dial(ln.Addr().String(), WithIOTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	_, err = conn.Query(context.Background(), "*IDN?")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport on read timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Query blocked for %v, expected the I/O deadline to cut it short", elapsed)
	}
}

func TestDial_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err = Dial(addr); !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
}
