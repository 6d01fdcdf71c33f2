package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      mode,
                      instrument,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    mode,
    instrument,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    mode,
    instrument,
    config
FROM sessions
ORDER BY start_time`

	insertPassSQL = `
INSERT INTO passes (session_id,
                    ifbw,
                    noise_floor,
                    trace_jitter)
VALUES (?, ?, ?, ?)`

	insertSweepSQL = `
INSERT INTO sweeps (pass_id,
                    sweep_index,
                    duration_us,
                    interval_us)
VALUES (?, ?, ?, ?)`

	insertPointSQL = `
INSERT INTO points (sweep_id,
                    frequency,
                    power_db)
VALUES (?, ?, ?)`

	selectPassesSQL = `
SELECT
    id,
    session_id,
    ifbw,
    noise_floor,
    trace_jitter
FROM passes
WHERE
    session_id = ?
ORDER BY id`

	selectSweepsSQL = `
SELECT
    id,
    pass_id,
    sweep_index,
    duration_us,
    interval_us
FROM sweeps
WHERE
    pass_id = ?
ORDER BY sweep_index`
)

//go:embed schema.sql
var schemaSQL string
