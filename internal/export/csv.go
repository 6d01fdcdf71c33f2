// Package export writes completed pass results to persisted artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rfbench/vna-sweep/internal/vna"
)

// WriteCSV writes one pass to a CSV file in dir and returns the file path.
// The layout is one frequency column plus one dB column per sweep, followed
// by a metrics footer.
func WriteCSV(dir string, result *vna.SweepResult) (path string, err error) {
	name := fmt.Sprintf("sweep_%s_%s_ifbw_%s.csv",
		result.Mode,
		time.Now().UTC().Format("20060102_150405"),
		ifbwLabel(result.IFBW))

	path = filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	w := csv.NewWriter(f)

	header := make([]string, 0, len(result.Traces)+1)
	header = append(header, "frequency_hz")
	for n := range result.Traces {
		header = append(header, fmt.Sprintf("sweep_%d_db", n))
	}
	if err = w.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(header))
	for p, frequency := range result.Frequencies {
		row[0] = strconv.FormatFloat(frequency, 'f', -1, 64)
		for n, trace := range result.Traces {
			row[n+1] = strconv.FormatFloat(trace[p], 'f', 6, 64)
		}
		if err = w.Write(row); err != nil {
			return "", fmt.Errorf("writing row %d: %w", p, err)
		}
	}

	footer := [][]string{
		{"noise_floor_db", strconv.FormatFloat(result.NoiseFloor, 'f', 6, 64)},
		{"trace_jitter_db", strconv.FormatFloat(result.TraceJitter, 'f', 6, 64)},
	}
	for n, duration := range result.Durations {
		footer = append(footer, []string{
			fmt.Sprintf("sweep_%d_duration_ms", n),
			strconv.FormatFloat(float64(duration.Microseconds())/1000, 'f', 3, 64),
		})
	}
	for n, interval := range result.Intervals {
		footer = append(footer, []string{
			fmt.Sprintf("interval_%d_ms", n+1),
			strconv.FormatFloat(float64(interval.Microseconds())/1000, 'f', 3, 64),
		})
	}
	if err = w.WriteAll(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}

	return path, nil
}

// ifbwLabel renders an IFBW value as a filename-safe SI string, e.g. 10kHz.
func ifbwLabel(hz int64) string {
	return strings.ReplaceAll(humanize.SI(float64(hz), "Hz"), " ", "")
}
