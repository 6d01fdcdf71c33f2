package scpi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Command vocabulary understood by the VNA firmware. Set commands carry a
// trailing argument; queries end with '?'.
const (
	cmdIdentify          = "*IDN?"
	cmdDeviceMode        = ":DEV:MODE"
	cmdSweepType         = ":VNA:SWEEP"
	cmdFreqStart         = ":VNA:FREQ:START"
	cmdFreqStop          = ":VNA:FREQ:STOP"
	cmdStimulusLevel     = ":VNA:POWER:LEVEL"
	cmdIFBandwidth       = ":VNA:ACQ:IFBW"
	cmdAveraging         = ":VNA:ACQ:AVG"
	cmdPoints            = ":VNA:ACQ:POINTS"
	cmdAcqFinished       = ":VNA:ACQ:FIN?"
	cmdAcqSingle         = ":VNA:ACQ:SINGLE"
	cmdAcqRun            = ":VNA:ACQ:RUN"
	cmdAcqStop           = ":VNA:ACQ:STOP"
	cmdTraceData         = ":VNA:TRAC:DATA?"
	cmdCalibrationLoad   = ":VNA:CAL:LOAD?"
	cmdCalibrationActive = ":VNA:CAL:ACT?"
)

// TracePoint is one entry of a bulk trace read: the stimulus frequency and
// the complex measurement value at that frequency.
type TracePoint struct {
	Frequency float64
	Value     complex128
}

// WithInstrumentLogger sets the logger for the instrument
func WithInstrumentLogger(logger *slog.Logger) func(i *Instrument) {
	return func(i *Instrument) {
		i.logger = logger.With(slog.String("channel", "instrument"))
	}
}

// Instrument exposes the typed command vocabulary over a Client. It owns no
// connection state of its own; serialization is the Client's concern.
type Instrument struct {
	client Client
	logger *slog.Logger
}

// NewInstrument creates a new Instrument over the given command channel
func NewInstrument(client Client, options ...func(i *Instrument)) *Instrument {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	i := Instrument{
		client: client,
		logger: logger,
	}

	for _, option := range options {
		option(&i)
	}

	return &i
}

// Identify returns the instrument's identification string.
func (i *Instrument) Identify(ctx context.Context) (string, error) {
	return i.client.Query(ctx, cmdIdentify)
}

// SetMode selects the device operating mode (e.g. "VNA").
func (i *Instrument) SetMode(ctx context.Context, mode string) error {
	return i.client.Send(ctx, cmdDeviceMode+" "+mode)
}

// SetSweepType selects the sweep type (e.g. "FREQUENCY").
func (i *Instrument) SetSweepType(ctx context.Context, sweepType string) error {
	return i.client.Send(ctx, cmdSweepType+" "+sweepType)
}

// SetStartFrequency sets the sweep start frequency in Hz.
func (i *Instrument) SetStartFrequency(ctx context.Context, hz int64) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %d", cmdFreqStart, hz))
}

// SetStopFrequency sets the sweep stop frequency in Hz. On this firmware,
// re-sending the stop frequency also re-arms the next single sweep; the
// polled acquisition strategy relies on that quirk as its trigger.
func (i *Instrument) SetStopFrequency(ctx context.Context, hz int64) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %d", cmdFreqStop, hz))
}

// SetStimulusLevel sets the stimulus level in dBm.
func (i *Instrument) SetStimulusLevel(ctx context.Context, dbm float64) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %g", cmdStimulusLevel, dbm))
}

// SetIFBandwidth sets the IF bandwidth in Hz.
func (i *Instrument) SetIFBandwidth(ctx context.Context, hz int64) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %d", cmdIFBandwidth, hz))
}

// SetAveraging sets the sweep averaging count.
func (i *Instrument) SetAveraging(ctx context.Context, count int) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %d", cmdAveraging, count))
}

// SetPoints sets the number of points per sweep.
func (i *Instrument) SetPoints(ctx context.Context, points int) error {
	return i.client.Send(ctx, fmt.Sprintf("%s %d", cmdPoints, points))
}

// AcquisitionFinished reports whether the current acquisition has completed.
// The reply is normalized for case and whitespace; anything other than an
// affirmative is reported as not finished, so a garbled partial reply never
// aborts a poll loop.
func (i *Instrument) AcquisitionFinished(ctx context.Context) (bool, error) {
	reply, err := i.client.Query(ctx, cmdAcqFinished)
	if err != nil {
		return false, err
	}

	reply = strings.TrimSpace(reply)
	return strings.EqualFold(reply, "TRUE") || reply == "1", nil
}

// SetSingleAcquisition selects single-sweep (true) or continuous (false)
// acquisition.
func (i *Instrument) SetSingleAcquisition(ctx context.Context, single bool) error {
	v := "FALSE"
	if single {
		v = "TRUE"
	}
	return i.client.Send(ctx, cmdAcqSingle+" "+v)
}

// RunAcquisition starts acquisition.
func (i *Instrument) RunAcquisition(ctx context.Context) error {
	return i.client.Send(ctx, cmdAcqRun)
}

// StopAcquisition stops acquisition.
func (i *Instrument) StopAcquisition(ctx context.Context) error {
	return i.client.Send(ctx, cmdAcqStop)
}

// TraceData fetches the named trace (e.g. "S11") as one bulk read and parses
// the comma-separated frequency/real/imaginary triples.
func (i *Instrument) TraceData(ctx context.Context, parameter string) ([]TracePoint, error) {
	reply, err := i.client.Query(ctx, cmdTraceData+" "+parameter)
	if err != nil {
		return nil, err
	}

	return parseTraceData(reply)
}

// LoadCalibration asks the instrument to load a calibration file and reports
// whether the load succeeded.
func (i *Instrument) LoadCalibration(ctx context.Context, path string) (bool, error) {
	reply, err := i.client.Query(ctx, cmdCalibrationLoad+" "+path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(reply), "TRUE"), nil
}

// ActiveCalibrationType returns the currently active calibration type, or
// "NONE" if no calibration is applied.
func (i *Instrument) ActiveCalibrationType(ctx context.Context) (string, error) {
	return i.client.Query(ctx, cmdCalibrationActive)
}

func parseTraceData(reply string) ([]TracePoint, error) {
	fields := strings.Split(reply, ",")
	values := make([]float64, 0, len(fields))

	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), "[]")
		if f == "" {
			continue
		}

		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing trace field %q: %w", f, err)
		}
		values = append(values, v)
	}

	if len(values) == 0 || len(values)%3 != 0 {
		return nil, fmt.Errorf("trace data is not a sequence of triples: %d values", len(values))
	}

	points := make([]TracePoint, 0, len(values)/3)
	for n := 0; n < len(values); n += 3 {
		points = append(points, TracePoint{
			Frequency: values[n],
			Value:     complex(values[n+1], values[n+2]),
		})
	}

	return points, nil
}
