package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rfbench/vna-sweep/internal/vna"
)

const (
	ModePolled   = "polled"
	ModeStreamed = "streamed"
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Instrument  InstrumentConfig  `yaml:"instrument"`
	Sweep       SweepSettings     `yaml:"sweep"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Storage     StorageConfig     `yaml:"storage"`
	Export      ExportConfig      `yaml:"export"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InstrumentConfig represents the instrument connection settings
type InstrumentConfig struct {
	ControlAddress string   `yaml:"controlAddress"`
	StreamAddress  string   `yaml:"streamAddress"`
	Mode           string   `yaml:"mode"`
	PollInterval   Duration `yaml:"pollInterval"`
	SweepTimeout   Duration `yaml:"sweepTimeout"`
}

// SweepSettings represents the per-run sweep parameters. Frequency range and
// point count are deliberately absent: they come from the calibration file.
type SweepSettings struct {
	StimulusLevel float64 `yaml:"stimulusLevelDBM"`
	Averaging     int     `yaml:"averaging"`
	NumSweeps     int     `yaml:"numSweeps"`
	IFBWValues    []int64 `yaml:"ifbwValues"`
}

// CalibrationConfig represents the calibration source
type CalibrationConfig struct {
	File string `yaml:"file"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// ExportConfig represents CSV export settings
type ExportConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// Duration is a yaml-parsable wrapper over time.Duration
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Or returns the duration, or fallback when unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}

// LoadConfig reads and validates the application configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the parts of the configuration the engine cannot check
// itself: addresses, mode and collaborator paths.
func (c *Config) Validate() error {
	if c.Instrument.ControlAddress == "" {
		return fmt.Errorf("instrument control address is required")
	}

	switch c.Instrument.Mode {
	case ModePolled:
	case ModeStreamed:
		if c.Instrument.StreamAddress == "" {
			return fmt.Errorf("stream address is required in %s mode", ModeStreamed)
		}
	default:
		return fmt.Errorf("unknown acquisition mode '%s'", c.Instrument.Mode)
	}

	if c.Calibration.File == "" {
		return fmt.Errorf("calibration file is required")
	}
	if c.Export.Enabled && c.Export.Directory == "" {
		return fmt.Errorf("export directory is required when export is enabled")
	}

	return nil
}

// EngineOptions converts the instrument timings to engine options.
func (c *Config) EngineOptions() vna.Options {
	opts := vna.DefaultOptions()
	opts.PollInterval = c.Instrument.PollInterval.Or(opts.PollInterval)
	opts.SweepTimeout = c.Instrument.SweepTimeout.Or(opts.SweepTimeout)
	return opts
}
