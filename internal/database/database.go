package database

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"solarscout/internal/logging"
	"solarscout/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the run journal: one row per posting run, used for spacing
// between runs and for the status endpoints.
type DB struct {
	*sql.DB
}

// RunRecord is one persisted run outcome.
type RunRecord struct {
	ID         int64            `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Status     models.RunStatus `json:"status"`
	Report     models.RunReport `json:"report"`
}

// NewDB opens a connection to the SQLite database specified by the path
// and runs any pending migrations.
func NewDB(dataSourceName string) (*DB, error) {
	logging.Info("Opening database connection to: %s", dataSourceName)
	// Enable foreign keys and WAL journaling on the connection string.
	u, err := url.Parse(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	q := u.Query()
	q.Set("_foreign_keys", "1")
	q.Set("_journal_mode", "WAL")
	u.RawQuery = q.Encode()

	dbConn, err := sql.Open("sqlite3", u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = dbConn.Ping(); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{dbConn}
	if err := db.applyMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return db, nil
}

// applyMigrations checks the current database schema version and applies
// any pending migrations from the embedded migrations filesystem.
func (db *DB) applyMigrations() error {
	logging.Info("Checking database migrations...")

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err == migrate.ErrNoChange {
		logging.Info("Database schema is up to date.")
	} else {
		logging.Info("Database migrations applied successfully.")
	}

	if err := src.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	logging.Info("Closing database connection.")
	return db.DB.Close()
}

// ---- Run Operations ----

// RecordRun persists the outcome of one posting run.
func (db *DB) RecordRun(report models.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}

	query := `
		INSERT INTO runs (started_at, finished_at, status, report)
		VALUES (?, ?, ?, ?);
	`
	_, err = db.Exec(query, report.StartedAt, report.FinishedAt, string(report.Status()), string(payload))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	logging.Info("Recorded run with status: %s", report.Status())
	return nil
}

// LastRun returns the most recent run, or nil when none exist.
func (db *DB) LastRun() (*RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, status, report
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1;
	`
	rec, err := db.scanRun(db.QueryRow(query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return rec, nil
}

// LastPostedAt returns the start time of the most recent run that
// actually published something (success or partial). Failed runs do not
// count against the spacing window.
func (db *DB) LastPostedAt() (sql.NullTime, error) {
	// Select the column itself rather than MAX(started_at): aggregate
	// expressions lose the TIMESTAMP decltype, so the driver would hand
	// back a raw string instead of a time.Time.
	query := `
		SELECT started_at
		FROM runs
		WHERE status IN (?, ?)
		ORDER BY started_at DESC
		LIMIT 1;
	`
	var at sql.NullTime
	err := db.QueryRow(query, string(models.RunSuccess), string(models.RunPartial)).Scan(&at)
	if err != nil && err != sql.ErrNoRows {
		return at, fmt.Errorf("failed to get last posted time: %w", err)
	}
	return at, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, status, report
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?;
	`
	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := db.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// TotalRuns returns the number of recorded runs.
func (db *DB) TotalRuns() (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanRun(row scannable) (*RunRecord, error) {
	var rec RunRecord
	var status, payload string
	if err := row.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &status, &payload); err != nil {
		return nil, err
	}
	rec.Status = models.RunStatus(status)
	if err := json.Unmarshal([]byte(payload), &rec.Report); err != nil {
		return nil, fmt.Errorf("failed to decode run report: %w", err)
	}
	return &rec, nil
}
