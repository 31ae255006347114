package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gregiteen/ai-devices/internal/latency"
	"github.com/gregiteen/ai-devices/internal/settings"
)

const schema = `
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS latency_records (
		sessionId TEXT PRIMARY KEY,
		startedAt REAL NOT NULL,
		transcription REAL,
		result REAL,
		audio REAL,
		total REAL NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		createdAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS latency_records_createdAt ON latency_records(createdAt);
`

// Store provides access to the hark SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSettings returns the saved toggles, or nil if none were saved.
// The ludicrous exclusion rule is re-applied to what was read.
func (s *Store) LoadSettings() (*settings.Snapshot, error) {
	rows, err := s.db.Query(`SELECT name, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var (
		snap  settings.Snapshot
		found bool
	)
	for rows.Next() {
		var name string
		var value bool
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		n, err := settings.ParseName(name)
		if err != nil {
			continue
		}
		snap = snap.With(n, value)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if !found {
		return nil, nil
	}
	snap = snap.Normalize()
	return &snap, nil
}

// SaveSettings writes every toggle in snap.
func (s *Store) SaveSettings(snap settings.Snapshot) error {
	snap = snap.Normalize()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := unixFromTime(s.now())
	for _, n := range settings.Names {
		if _, err := tx.Exec(`
			INSERT INTO settings (name, value, updatedAt) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
		`, string(n), snap.Get(n), now); err != nil {
			return fmt.Errorf("save setting %s: %w", n, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

// RecordLatency appends one latency record.
func (s *Store) RecordLatency(rec LatencyRecord) error {
	stage := func(st latency.Stage) sql.NullFloat64 {
		if !rec.Has(st) {
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: rec.Report.Stage(st).Seconds(), Valid: true}
	}
	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO latency_records
			(sessionId, startedAt, transcription, result, audio, total, outcome, error, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, unixFromTime(rec.StartedAt),
		stage(latency.StageTranscription), stage(latency.StageResult), stage(latency.StageAudio),
		rec.Report.Total.Seconds(), rec.Outcome, errText, unixFromTime(s.now()))
	if err != nil {
		return fmt.Errorf("insert latency record: %w", err)
	}
	return nil
}

// RecentLatency returns up to n records, newest first.
func (s *Store) RecentLatency(n int) ([]LatencyRecord, error) {
	rows, err := s.db.Query(`
		SELECT sessionId, startedAt, transcription, result, audio, total, outcome, error, createdAt
		FROM latency_records
		ORDER BY createdAt DESC, rowid DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query latency records: %w", err)
	}
	defer rows.Close()

	var records []LatencyRecord
	for rows.Next() {
		var r LatencyRecord
		var startedAt, total, createdAt float64
		var transcription, result, audio sql.NullFloat64
		var errText sql.NullString
		if err := rows.Scan(&r.SessionID, &startedAt, &transcription, &result, &audio,
			&total, &r.Outcome, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan latency record: %w", err)
		}
		r.StartedAt = timeFromUnix(startedAt)
		r.CreatedAt = timeFromUnix(createdAt)
		r.Report.Total = durationFromSeconds(total)
		if transcription.Valid {
			r.Report.Transcription = durationFromSeconds(transcription.Float64)
			r.Recorded = append(r.Recorded, latency.StageTranscription)
		}
		if result.Valid {
			r.Report.Result = durationFromSeconds(result.Float64)
			r.Recorded = append(r.Recorded, latency.StageResult)
		}
		if audio.Valid {
			r.Report.Audio = durationFromSeconds(audio.Float64)
			r.Recorded = append(r.Recorded, latency.StageAudio)
		}
		if errText.Valid {
			r.Error = errText.String
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}
