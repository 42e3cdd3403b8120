package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gwillem/visiontwin/pkg/vision"
)

// SQLiteFile is the database name used by Open.
const SQLiteFile = "runs.db"

// SQLitePath returns the database path inside dir.
func SQLitePath(dir string) string {
	return filepath.Join(dir, SQLiteFile)
}

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		t BIGINT,
		strategy TEXT,
		source TEXT,
		mode TEXT,
		target_a1 DOUBLE, target_a2 DOUBLE, target_a3 DOUBLE,
		actual_a1 DOUBLE, actual_a2 DOUBLE, actual_a3 DOUBLE,
		err_a1 DOUBLE, err_a2 DOUBLE, err_a3 DOUBLE,
		dx INTEGER,
		dy INTEGER,
		FOREIGN KEY(run_id) REFERENCES runs(run_id)
	);
	CREATE INDEX IF NOT EXISTS samples_run ON samples(run_id);
`

// SQLite stores records in a database shared by all runs. Each recorder
// writes under its own run id.
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
	runID  string
}

// OpenSQLite opens or creates the database at path and registers a new run.
func OpenSQLite(path string, now time.Time) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	runID := uuid.NewString()
	if _, err := db.Exec("INSERT INTO runs (run_id, started) VALUES (?, ?)", runID, now.UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO samples (
		run_id, t, strategy, source, mode,
		target_a1, target_a2, target_a3,
		actual_a1, actual_a2, actual_a3,
		err_a1, err_a2, err_a3,
		dx, dy
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &SQLite{db: db, insert: insert, runID: runID}, nil
}

// RunID returns the id the records are stored under.
func (s *SQLite) RunID() string {
	return s.runID
}

// Record inserts one row.
func (s *SQLite) Record(r Record) error {
	e := r.Error()
	var dx, dy sql.NullInt64
	if r.Smoothed != nil {
		dx = sql.NullInt64{Int64: int64(r.Smoothed.X), Valid: true}
		dy = sql.NullInt64{Int64: int64(r.Smoothed.Y), Valid: true}
	}
	_, err := s.insert.Exec(
		s.runID, r.Time.Unix(), r.Strategy, r.Source, r.Mode,
		r.Target.A1, r.Target.A2, r.Target.A3,
		r.Actual.A1, r.Actual.A2, r.Actual.A3,
		e.A1, e.A2, e.A3,
		dx, dy,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// Records returns the records of this run in insertion order.
func (s *SQLite) Records() ([]Record, error) {
	return readRun(s.db, s.runID)
}

// Close releases the database.
func (s *SQLite) Close() error {
	return errors.Join(s.insert.Close(), s.db.Close())
}

// ReadSQLite loads the records of runID from the database at path. An empty
// runID selects the most recently started run.
func ReadSQLite(path, runID string) ([]Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if runID == "" {
		err := db.QueryRow("SELECT run_id FROM runs ORDER BY started DESC LIMIT 1").Scan(&runID)
		if err != nil {
			return nil, fmt.Errorf("latest run: %w", err)
		}
	}
	return readRun(db, runID)
}

func readRun(db *sql.DB, runID string) ([]Record, error) {
	rows, err := db.Query(`SELECT t, strategy, source, mode,
		target_a1, target_a2, target_a3,
		actual_a1, actual_a2, actual_a3,
		dx, dy
		FROM samples WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			r      Record
			ts     int64
			dx, dy sql.NullInt64
		)
		if err := rows.Scan(&ts, &r.Strategy, &r.Source, &r.Mode,
			&r.Target.A1, &r.Target.A2, &r.Target.A3,
			&r.Actual.A1, &r.Actual.A2, &r.Actual.A3,
			&dx, &dy); err != nil {
			return nil, err
		}
		r.Time = time.Unix(ts, 0)
		if dx.Valid && dy.Valid {
			r.Smoothed = &vision.Centroid{X: float64(dx.Int64), Y: float64(dy.Int64)}
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
