// Package history persists terminal generation outcomes to SQLite so the
// CLI and API can report on past work across sessions.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Archive wraps a SQLite database holding archived generation outcomes.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Archive, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "unqflow.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	if _, err := a.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := a.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := a.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// Save inserts one archived outcome.
func (a *Archive) Save(rec Record) error {
	finishedAt := rec.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	_, err := a.db.Exec(`
		INSERT INTO generation_history (id, generation_id, topic, platform, content_type, duration, outcome, progress, error_message, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GenerationID, rec.Topic, rec.Platform, rec.ContentType, rec.Duration,
		rec.Outcome, rec.Progress, rec.ErrorMessage,
		rec.CreatedAt.UTC().Format(time.RFC3339), finishedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Get returns the archived record with the given id.
func (a *Archive) Get(id string) (Record, error) {
	row := a.db.QueryRow(`
		SELECT id, generation_id, topic, platform, content_type, duration, outcome, progress, error_message, created_at, finished_at
		FROM generation_history WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns archived records, most recently finished first.
func (a *Archive) List(limit, offset int) ([]Record, error) {
	rows, err := a.db.Query(`
		SELECT id, generation_id, topic, platform, content_type, duration, outcome, progress, error_message, created_at, finished_at
		FROM generation_history ORDER BY finished_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// CountByOutcome returns the number of archived records per outcome.
func (a *Archive) CountByOutcome() (map[string]int, error) {
	rows, err := a.db.Query("SELECT outcome, COUNT(*) FROM generation_history GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// CountCompletedSince returns how many generations completed at or after t.
func (a *Archive) CountCompletedSince(t time.Time) (int, error) {
	var n int
	err := a.db.QueryRow(
		"SELECT COUNT(*) FROM generation_history WHERE outcome = ? AND finished_at >= ?",
		OutcomeCompleted, t.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

// Purge deletes all archived records.
func (a *Archive) Purge() error {
	_, err := a.db.Exec("DELETE FROM generation_history")
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var createdAt, finishedAt string
	if err := row.Scan(&rec.ID, &rec.GenerationID, &rec.Topic, &rec.Platform, &rec.ContentType,
		&rec.Duration, &rec.Outcome, &rec.Progress, &rec.ErrorMessage, &createdAt, &finishedAt); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = t
	if t, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return Record{}, fmt.Errorf("parsing finished_at: %w", err)
	}
	rec.FinishedAt = t
	return rec, nil
}
