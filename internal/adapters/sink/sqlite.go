package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/trackwave/trackwave/internal/domain/model"
)

const dateFormat = "2006-01-02"

const createReactivityTable = `
CREATE TABLE IF NOT EXISTS Reactivity (
	song_id      INTEGER NOT NULL,
	region       TEXT NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	correlation  REAL,
	grade        TEXT NOT NULL,
	sample_count INTEGER NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (song_id, region, window_start, window_end)
)`

// SQLite is a Sink backed by a sqlite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the sink database at path.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sink database %q: %w", path, err)
	}
	if _, err := db.Exec(createReactivityTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating reactivity table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// PersistReactivity implements Sink. Writing the same key again replaces
// the stored figure, so batch reruns are safe.
func (s *SQLite) PersistReactivity(ctx context.Context, key Key, result model.ReactivityResult) error {
	correlation := sql.NullFloat64{}
	if result.Correlation != nil {
		correlation = sql.NullFloat64{Float64: *result.Correlation, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Reactivity (song_id, region, window_start, window_end, correlation, grade, sample_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (song_id, region, window_start, window_end) DO UPDATE SET
			correlation = excluded.correlation,
			grade = excluded.grade,
			sample_count = excluded.sample_count,
			updated_at = excluded.updated_at`,
		key.UnifiedSongID,
		key.Region,
		key.WindowStart.UTC().Format(dateFormat),
		key.WindowEnd.UTC().Format(dateFormat),
		correlation,
		string(result.Grade),
		result.SampleCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting reactivity for song %d in %s: %w", key.UnifiedSongID, key.Region, err)
	}
	return nil
}

// Load returns the stored result for key.
// Returns sql.ErrNoRows when no row exists.
func (s *SQLite) Load(ctx context.Context, key Key) (model.ReactivityResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT correlation, grade, sample_count FROM Reactivity
		WHERE song_id = ? AND region = ? AND window_start = ? AND window_end = ?`,
		key.UnifiedSongID,
		key.Region,
		key.WindowStart.UTC().Format(dateFormat),
		key.WindowEnd.UTC().Format(dateFormat),
	)

	var correlation sql.NullFloat64
	var grade string
	var samples int
	if err := row.Scan(&correlation, &grade, &samples); err != nil {
		return model.ReactivityResult{}, err
	}

	result := model.ReactivityResult{Grade: model.Grade(grade), SampleCount: samples}
	if correlation.Valid {
		result.Correlation = &correlation.Float64
	}
	return result, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
