package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rfbench/vna-sweep/internal/calibration"
	"github.com/rfbench/vna-sweep/internal/export"
	"github.com/rfbench/vna-sweep/internal/scpi"
	"github.com/rfbench/vna-sweep/internal/storage"
	"github.com/rfbench/vna-sweep/internal/vna"
)

const storageDir = "data"

// Run executes one characterization run: load the calibration, connect to
// the instrument, drive the session, then persist and export whatever passes
// completed. A pass failure does not discard earlier passes.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	cal, err := calibration.Load(config.Calibration.File)
	if err != nil {
		return fmt.Errorf("loading calibration: %w", err)
	}

	cfg := vna.SweepConfig{
		StimulusLevel: config.Sweep.StimulusLevel,
		Averaging:     config.Sweep.Averaging,
		NumSweeps:     config.Sweep.NumSweeps,
		IFBWValues:    config.Sweep.IFBWValues,
	}
	cfg.ApplyCalibration(cal)

	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid sweep configuration: %w", err)
	}

	conn, err := scpi.Dial(config.Instrument.ControlAddress, scpi.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connecting to instrument: %w", err)
	}
	defer conn.Close()

	inst := scpi.NewInstrument(conn, scpi.WithInstrumentLogger(logger))

	identity, err := prepareInstrument(ctx, inst, config, logger)
	if err != nil {
		return err
	}

	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	sessionID, err := store.CreateSession(config.Instrument.Mode, identity, cfg)
	if err != nil {
		return fmt.Errorf("creating session record: %w", err)
	}

	strategy, teardown, err := createStrategy(inst, config, logger)
	if err != nil {
		return err
	}
	defer teardown()

	session := vna.NewSession(inst, strategy, cfg, vna.WithLogger(logger))
	results, runErr := session.Run(ctx)

	for _, result := range results {
		if _, err = store.StorePassResult(sessionID, result); err != nil {
			logger.Error(err.Error())
		}
		if config.Export.Enabled {
			path, eErr := export.WriteCSV(config.Export.Directory, result)
			if eErr != nil {
				logger.Error(eErr.Error())
				continue
			}
			logger.Info("pass exported", slog.String("path", path))
		}
	}

	return runErr
}

func prepareInstrument(ctx context.Context, inst *scpi.Instrument, config *Config, logger *slog.Logger) (string, error) {
	identity, err := inst.Identify(ctx)
	if err != nil {
		return "", fmt.Errorf("identifying instrument: %w", err)
	}
	logger.Info("instrument connected", slog.String("identity", identity))

	if err = inst.SetMode(ctx, "VNA"); err != nil {
		return "", fmt.Errorf("selecting VNA mode: %w", err)
	}
	if err = inst.SetSweepType(ctx, "FREQUENCY"); err != nil {
		return "", fmt.Errorf("selecting frequency sweep: %w", err)
	}

	loaded, err := inst.LoadCalibration(ctx, config.Calibration.File)
	if err != nil {
		return "", fmt.Errorf("loading instrument calibration: %w", err)
	}
	if !loaded {
		return "", fmt.Errorf("instrument rejected calibration file '%s'", config.Calibration.File)
	}

	calType, err := inst.ActiveCalibrationType(ctx)
	if err != nil {
		return "", fmt.Errorf("querying active calibration: %w", err)
	}
	logger.Info("calibration active", slog.String("type", calType))

	return identity, nil
}

func createStrategy(inst *scpi.Instrument, config *Config, logger *slog.Logger) (vna.AcquisitionStrategy, func(), error) {
	opts := config.EngineOptions()

	if config.Instrument.Mode == ModePolled {
		return vna.NewPolledStrategy(inst, opts, vna.WithPolledLogger(logger)), func() {}, nil
	}

	listener, err := vna.DialListener(config.Instrument.StreamAddress, vna.WithListenerLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to point stream: %w", err)
	}

	strategy := vna.NewStreamedStrategy(inst, listener, opts, vna.WithStreamedLogger(logger))
	return strategy, strategy.Close, nil
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("vna_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}
