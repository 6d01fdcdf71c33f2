package scpi

import (
	"context"
	"testing"
)

// recordingClient captures commands and plays back canned replies.
type recordingClient struct {
	sent    []string
	replies map[string]string
}

func (c *recordingClient) Send(_ context.Context, cmd string) error {
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *recordingClient) Query(_ context.Context, cmd string) (string, error) {
	c.sent = append(c.sent, cmd)
	return c.replies[cmd], nil
}

func (c *recordingClient) Close() error { return nil }

func TestInstrument_CommandFormatting(t *testing.T) {
	client := &recordingClient{replies: map[string]string{}}
	inst := NewInstrument(client)
	ctx := context.Background()

	_ = inst.SetMode(ctx, "VNA")
	_ = inst.SetSweepType(ctx, "FREQUENCY")
	_ = inst.SetStartFrequency(ctx, 1_000_000)
	_ = inst.SetStopFrequency(ctx, 6_000_000_000)
	_ = inst.SetStimulusLevel(ctx, -10.5)
	_ = inst.SetIFBandwidth(ctx, 1000)
	_ = inst.SetAveraging(ctx, 4)
	_ = inst.SetPoints(ctx, 501)
	_ = inst.SetSingleAcquisition(ctx, true)
	_ = inst.RunAcquisition(ctx)
	_ = inst.StopAcquisition(ctx)

	expected := []string{
		":DEV:MODE VNA",
		":VNA:SWEEP FREQUENCY",
		":VNA:FREQ:START 1000000",
		":VNA:FREQ:STOP 6000000000",
		":VNA:POWER:LEVEL -10.5",
		":VNA:ACQ:IFBW 1000",
		":VNA:ACQ:AVG 4",
		":VNA:ACQ:POINTS 501",
		":VNA:ACQ:SINGLE TRUE",
		":VNA:ACQ:RUN",
		":VNA:ACQ:STOP",
	}

	if len(client.sent) != len(expected) {
		t.Fatalf("Expected %d commands, got %d", len(expected), len(client.sent))
	}
	for n, cmd := range expected {
		if client.sent[n] != cmd {
			t.Errorf("Command %d: expected %q, got %q", n, cmd, client.sent[n])
		}
	}
}

func TestInstrument_AcquisitionFinished(t *testing.T) {
	testCases := []struct {
		reply    string
		finished bool
	}{
		{"TRUE", true},
		{"true", true},
		{" True ", true},
		{"1", true},
		{"FALSE", false},
		{"0", false},
		{"", false},
		{"garbled partial repl", false},
	}

	for _, tc := range testCases {
		t.Run(tc.reply, func(t *testing.T) {
			client := &recordingClient{replies: map[string]string{cmdAcqFinished: tc.reply}}
			inst := NewInstrument(client)

			finished, err := inst.AcquisitionFinished(context.Background())
			if err != nil {
				t.Fatalf("AcquisitionFinished failed: %v", err)
			}
			if finished != tc.finished {
				t.Errorf("Reply %q: expected finished=%v, got %v", tc.reply, tc.finished, finished)
			}
		})
	}
}

func TestInstrument_TraceData(t *testing.T) {
	client := &recordingClient{replies: map[string]string{
		cmdTraceData + " S11": "[1000000,0.001,0.002],[2000000,-0.003,0.004]",
	}}
	inst := NewInstrument(client)

	points, err := inst.TraceData(context.Background(), "S11")
	if err != nil {
		t.Fatalf("TraceData failed: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("Expected 2 trace points, got %d", len(points))
	}
	if points[0].Frequency != 1_000_000 || points[0].Value != complex(0.001, 0.002) {
		t.Errorf("Unexpected first point: %+v", points[0])
	}
	if points[1].Frequency != 2_000_000 || points[1].Value != complex(-0.003, 0.004) {
		t.Errorf("Unexpected second point: %+v", points[1])
	}
}

func TestInstrument_TraceDataMalformed(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"not a triple multiple", "1000000,0.001"},
		{"non-numeric", "1000000,abc,0.002"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &recordingClient{replies: map[string]string{cmdTraceData + " S11": tc.reply}}
			inst := NewInstrument(client)

			if _, err := inst.TraceData(context.Background(), "S11"); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}
