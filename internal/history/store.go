// Package history records every transcoding job in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/kikiluvv/trimlay/internal/editor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status is the lifecycle state of a recorded job
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a job id has no record
var ErrNotFound = errors.New("job not found")

// Entry is one recorded job
type Entry struct {
	Job         editor.JobDescription
	Status      Status
	OutputBytes int64
	Error       string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// Elapsed is the wall time the job took, zero while running
func (e Entry) Elapsed() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.CreatedAt)
}

// Store persists job history
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens or creates the history database at path
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if n, err := s.markInterrupted(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to mark interrupted jobs")
	} else if n > 0 {
		s.logger.Info().Int64("count", n).Msg("marked interrupted jobs as failed")
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.conn.Close()
}

// Begin records a job as running
func (s *Store) Begin(ctx context.Context, job editor.JobDescription) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO jobs (id, status, trim_start, trim_length, overlay_x, overlay_y, overlay_scale, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, StatusRunning, job.TrimStart, job.TrimLength,
		job.OverlayX, job.OverlayY, job.OverlayScale, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// Finish records the outcome of a running job
func (s *Store) Finish(ctx context.Context, id string, outputBytes int, jobErr error) error {
	status := StatusSucceeded
	var reason any
	if jobErr != nil {
		status = StatusFailed
		reason = jobErr.Error()
	}

	res, err := s.conn.ExecContext(ctx,
		`UPDATE jobs SET status = ?, output_bytes = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, outputBytes, reason, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one job by id
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.conn.QueryRowContext(ctx, selectJobs+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// List returns the most recent jobs first. A limit of zero returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := selectJobs + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const selectJobs = `SELECT id, status, trim_start, trim_length, overlay_x, overlay_y, overlay_scale,
	output_bytes, error, created_at, finished_at FROM jobs`

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		e        Entry
		reason   sql.NullString
		created  string
		finished sql.NullString
	)

	err := scanner.Scan(&e.Job.ID, &e.Status, &e.Job.TrimStart, &e.Job.TrimLength,
		&e.Job.OverlayX, &e.Job.OverlayY, &e.Job.OverlayScale,
		&e.OutputBytes, &reason, &created, &finished)
	if err != nil {
		return nil, err
	}

	e.Error = reason.String
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		e.FinishedAt = &t
	}
	return &e, nil
}

func (s *Store) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}

		name := m.Name()

		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		s.logger.Debug().Str("name", name).Msg("applied migration")
	}

	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// markInterrupted fails jobs left running by a previous process
func (s *Store) markInterrupted() (int64, error) {
	res, err := s.conn.Exec(
		`UPDATE jobs SET status = ?, error = 'interrupted by restart', finished_at = ? WHERE status = ?`,
		StatusFailed, formatTime(s.now()), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
