package storage

import (
	"database/sql"
	"time"
)

// SessionData represents one characterization run
type SessionData struct {
	ID         int64
	StartTime  time.Time
	Mode       string
	Instrument string
	Config     sql.NullString
}

// PassData represents one stored IFBW pass with its quality metrics
type PassData struct {
	ID          int64
	SessionID   int64
	IFBW        int64
	NoiseFloor  sql.NullFloat64
	TraceJitter sql.NullFloat64
}

// SweepData represents one stored sweep's timing
type SweepData struct {
	ID         int64
	PassID     int64
	SweepIndex int64
	DurationUS int64
	IntervalUS sql.NullInt64
}
