// Package mhtstore is an optional read-out sink for tracker results: a
// HookSubscriber-compatible wrapper around a database/sql handle that
// mirrors every committed track and false alarm into SQLite.
package mhtstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/laser-mht/internal/mht"
)

const schema = `
CREATE TABLE IF NOT EXISTS mht_tracks (
	track_id INTEGER PRIMARY KEY,
	started_frame INTEGER NOT NULL,
	ended_frame INTEGER,
	ended INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mht_samples (
	track_id INTEGER NOT NULL,
	frame_number INTEGER NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	vx REAL NOT NULL,
	vy REAL NOT NULL,
	measured INTEGER NOT NULL,
	measured_x REAL,
	measured_y REAL,
	log_likelihood REAL NOT NULL,
	PRIMARY KEY (track_id, frame_number)
);

CREATE TABLE IF NOT EXISTS mht_false_alarms (
	frame_number INTEGER NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	corner_index INTEGER NOT NULL
);
`

// Open creates (or reuses) a SQLite database at path and applies the
// tracker schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tracker database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply tracker schema: %w", err)
	}
	return db, nil
}

// Sink writes every hook event it receives straight to the database. It
// implements mht.HookSubscriber and can be attached to an engine
// alongside (or instead of) a mht.TrackRegistry.
type Sink struct {
	db *sql.DB
}

// NewSink wraps an already-open, already-migrated database handle.
func NewSink(db *sql.DB) *Sink { return &Sink{db: db} }

func (s *Sink) StartTrack(id uint64, sample mht.Sample) {
	if _, err := s.db.Exec(
		`INSERT INTO mht_tracks (track_id, started_frame, ended) VALUES (?, ?, 0)`,
		id, sample.FrameNumber,
	); err != nil {
		return
	}
	s.insertSample(id, sample)
}

func (s *Sink) ContinueTrack(id uint64, sample mht.Sample) { s.insertSample(id, sample) }
func (s *Sink) SkipTrack(id uint64, sample mht.Sample)     { s.insertSample(id, sample) }

func (s *Sink) EndTrack(id uint64, frameNumber int) {
	s.db.Exec(
		`UPDATE mht_tracks SET ended = 1, ended_frame = ? WHERE track_id = ?`,
		frameNumber, id,
	)
}

func (s *Sink) FalseAlarmReported(fa mht.FalseAlarm) {
	s.db.Exec(
		`INSERT INTO mht_false_alarms (frame_number, x, y, corner_index) VALUES (?, ?, ?, ?)`,
		fa.FrameNumber, fa.X, fa.Y, fa.CornerIndex,
	)
}

func (s *Sink) insertSample(id uint64, sample mht.Sample) {
	var measuredX, measuredY sql.NullFloat64
	if sample.Measured {
		measuredX = sql.NullFloat64{Float64: sample.MeasuredX, Valid: true}
		measuredY = sql.NullFloat64{Float64: sample.MeasuredY, Valid: true}
	}
	s.db.Exec(
		`INSERT INTO mht_samples (track_id, frame_number, x, y, vx, vy, measured, measured_x, measured_y, log_likelihood)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sample.FrameNumber, sample.X, sample.Y, sample.VX, sample.VY,
		sample.Measured, measuredX, measuredY, sample.LogLikelihood,
	)
}
