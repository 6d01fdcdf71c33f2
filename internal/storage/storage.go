// Package storage persists characterization runs in a sqlite database:
// sessions, their IFBW passes, per-sweep timings and the dB trace points.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rfbench/vna-sweep/internal/vna"
)

// Store handles database operations
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a new store backed by a sqlite database at dbPath. Connections
// are opened lazily; the schema is initialized on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession creates a new session and returns its ID
func (s *Store) CreateSession(mode, instrument string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.Prepare(insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.Exec(mode, instrument, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	return result.LastInsertId()
}

// StorePassResult saves one completed IFBW pass: the pass row, its per-sweep
// timings and every trace point, in a single transaction.
func (s *Store) StorePassResult(sessionID int64, result *vna.SweepResult) (passID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}

	if passID, err = s.insertPass(tx, sessionID, result); err != nil {
		rollbackWithError(tx, &err)
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return passID, nil
}

func (s *Store) insertPass(tx *sql.Tx, sessionID int64, result *vna.SweepResult) (passID int64, err error) {
	res, err := tx.Exec(insertPassSQL, sessionID, result.IFBW, result.NoiseFloor, result.TraceJitter)
	if err != nil {
		return 0, fmt.Errorf("inserting pass: %w", err)
	}
	if passID, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	sweepStmt, err := tx.Prepare(insertSweepSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing sweep statement: %w", err)
	}
	defer closeWithError(sweepStmt, &err)

	pointStmt, err := tx.Prepare(insertPointSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing point statement: %w", err)
	}
	defer closeWithError(pointStmt, &err)

	for n, trace := range result.Traces {
		var interval sql.NullInt64
		if n > 0 && n-1 < len(result.Intervals) {
			interval.Valid = true
			interval.Int64 = result.Intervals[n-1].Microseconds()
		}

		var duration time.Duration
		if n < len(result.Durations) {
			duration = result.Durations[n]
		}

		res, err = sweepStmt.Exec(passID, n, duration.Microseconds(), interval)
		if err != nil {
			return 0, fmt.Errorf("inserting sweep %d: %w", n, err)
		}

		sweepID, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, idErr
		}

		for p, power := range trace {
			var frequency float64
			if p < len(result.Frequencies) {
				frequency = result.Frequencies[p]
			}
			if _, err = pointStmt.Exec(sweepID, frequency, power); err != nil {
				return 0, fmt.Errorf("inserting point %d of sweep %d: %w", p, n, err)
			}
		}
	}

	return passID, nil
}

// Session returns a session by its ID, or nil if not found
func (s *Store) Session(id int64) (session *SessionData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var data SessionData
	row := db.QueryRow(selectSessionSQL, id)
	if err = row.Scan(&data.ID, &data.StartTime, &data.Mode, &data.Instrument, &data.Config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	return &data, nil
}

// Sessions returns all sessions ordered by start time
func (s *Store) Sessions() (sessions []*SessionData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data SessionData
		if err = rows.Scan(&data.ID, &data.StartTime, &data.Mode, &data.Instrument, &data.Config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, &data)
	}

	return sessions, rows.Err()
}

// Passes returns all passes stored for a session, in insertion order
func (s *Store) Passes(sessionID int64) (passes []*PassData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectPassesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data PassData
		if err = rows.Scan(&data.ID, &data.SessionID, &data.IFBW, &data.NoiseFloor, &data.TraceJitter); err != nil {
			return nil, fmt.Errorf("scanning pass: %w", err)
		}
		passes = append(passes, &data)
	}

	return passes, rows.Err()
}

// Sweeps returns the per-sweep timings of a pass, in sweep order
func (s *Store) Sweeps(passID int64) (sweeps []*SweepData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectSweepsSQL, passID)
	if err != nil {
		return nil, fmt.Errorf("querying sweeps: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data SweepData
		if err = rows.Scan(&data.ID, &data.PassID, &data.SweepIndex, &data.DurationUS, &data.IntervalUS); err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		sweeps = append(sweeps, &data)
	}

	return sweeps, rows.Err()
}

// Close releases the database connections. It is safe to call Close multiple
// times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
