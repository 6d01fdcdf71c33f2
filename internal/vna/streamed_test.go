package vna

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rfbench/vna-sweep/internal/scpi"
)

func streamedFixture(t *testing.T, points int) (*StreamedStrategy, net.Conn, *scriptedClient) {
	t.Helper()

	clientSide, serverSide := net.Pipe()
	client := &scriptedClient{}

	s := NewStreamedStrategy(scpi.NewInstrument(client), NewListener(clientSide), testOptions())
	t.Cleanup(s.Close)
	t.Cleanup(func() { serverSide.Close() })

	cfg := validConfig()
	cfg.Points = points
	if err := s.BeginPass(context.Background(), &cfg); err != nil {
		t.Fatalf("BeginPass failed: %v", err)
	}

	return s, serverSide, client
}

func writePoint(t *testing.T, conn net.Conn, index int, value float64) {
	t.Helper()

	_, err := fmt.Fprintf(conn,
		"{\"pointIndex\":%d,\"referenceImpedance\":50,\"measurements\":{\"S11\":{\"real\":%g,\"imag\":0}}}\n",
		index, value)
	if err != nil {
		t.Fatalf("Failed to write point %d: %v", index, err)
	}
}

func TestStreamedStrategy_TwoSweeps(t *testing.T) {
	s, server, client := streamedFixture(t, 5)

	go func() {
		for n, index := range []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4} {
			writePoint(t, server, index, float64(n))
		}
	}()

	first, err := s.AcquireSweep(context.Background())
	if err != nil {
		t.Fatalf("First AcquireSweep failed: %v", err)
	}
	second, err := s.AcquireSweep(context.Background())
	if err != nil {
		t.Fatalf("Second AcquireSweep failed: %v", err)
	}

	for p, z := range first.samples {
		if real(z) != float64(p) {
			t.Errorf("First sweep point %d: expected %d, got %.0f", p, p, real(z))
		}
	}
	for p, z := range second.samples {
		if real(z) != float64(p+5) {
			t.Errorf("Second sweep point %d: expected %d, got %.0f", p, p+5, real(z))
		}
	}

	if first.hasInterval {
		t.Error("First sweep must not carry an inter-sweep interval")
	}
	if !second.hasInterval || second.interval <= 0 {
		t.Errorf("Second sweep must carry a positive inter-sweep interval, got %v", second.interval)
	}

	// Continuous mode was armed over the command channel.
	if n := client.countPrefix(":VNA:ACQ:SINGLE FALSE"); n != 1 {
		t.Errorf("Expected continuous-acquisition select, got %d writes", n)
	}
	if n := client.countPrefix(":VNA:ACQ:RUN"); n != 1 {
		t.Errorf("Expected acquisition start, got %d writes", n)
	}
}

func TestStreamedStrategy_DiscardsPartialLeadingSweep(t *testing.T) {
	s, server, _ := streamedFixture(t, 5)

	go func() {
		for n, index := range []int{2, 3, 4, 0, 1, 2, 3, 4} {
			writePoint(t, server, index, float64(n))
		}
	}()

	sweep, err := s.AcquireSweep(context.Background())
	if err != nil {
		t.Fatalf("AcquireSweep failed: %v", err)
	}

	// Only the sweep that began at index 0 is reported (values 3..7).
	for p, z := range sweep.samples {
		if real(z) != float64(p+3) {
			t.Errorf("Point %d: expected %d, got %.0f", p, p+3, real(z))
		}
	}

	// No second sweep may surface from the discarded leading points.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err = s.AcquireSweep(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected no further sweep, got %v", err)
	}
}

func TestStreamedStrategy_CloseUnblocksAcquire(t *testing.T) {
	s, _, _ := streamedFixture(t, 5)

	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, err := s.AcquireSweep(context.Background())
		done <- result{err}
	}()

	time.Sleep(10 * time.Millisecond) // let the acquire block
	s.Close()

	select {
	case r := <-done:
		if r.err == nil {
			t.Fatal("Expected a terminal error after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("AcquireSweep still blocked 1s after Close")
	}
}

func TestStreamedStrategy_PeerDisconnectSurfacesListenerError(t *testing.T) {
	s, server, _ := streamedFixture(t, 5)

	server.Close()

	_, err := s.AcquireSweep(context.Background())
	if !errors.Is(err, ErrListenerClosed) {
		t.Fatalf("Expected ErrListenerClosed, got %v", err)
	}
}
