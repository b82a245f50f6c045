// Package sqlite provides a SQLite-backed importer storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/marcusguelfi/rpg-plataform/internal/platform/storage/sqlitemigrate"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists import jobs and rule systems in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite importer store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateJob inserts one import job row.
func (s *Store) CreateJob(ctx context.Context, job storage.ImportJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(job.ID)
	if id == "" {
		return fmt.Errorf("job id is required")
	}
	if job.Status == "" {
		job.Status = storage.JobPending
	}
	createdAt := job.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := job.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO import_jobs (id, filename, status, progress, result, log, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?, ?)`,
		id,
		strings.TrimSpace(job.Filename),
		string(job.Status),
		job.Progress,
		job.Log,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

// GetJob returns one import job by id.
func (s *Store) GetJob(ctx context.Context, id string) (storage.ImportJob, error) {
	if err := ctx.Err(); err != nil {
		return storage.ImportJob{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ImportJob{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ImportJob{}, fmt.Errorf("job id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, filename, status, progress, result, log, created_at, updated_at
		   FROM import_jobs
		  WHERE id = ?`,
		id,
	)

	var job storage.ImportJob
	var status string
	var result sql.NullString
	var createdAt int64
	var updatedAt int64
	err := row.Scan(&job.ID, &job.Filename, &status, &job.Progress, &result, &job.Log, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ImportJob{}, storage.ErrNotFound
		}
		return storage.ImportJob{}, fmt.Errorf("get import job: %w", err)
	}
	job.Status = storage.JobStatus(status)
	if result.Valid && result.String != "" {
		var decoded storage.JobResult
		if err := json.Unmarshal([]byte(result.String), &decoded); err != nil {
			return storage.ImportJob{}, fmt.Errorf("decode job result: %w", err)
		}
		job.Result = &decoded
	}
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	return job, nil
}

// UpdateJobProgress advances a non-terminal job. Updates that would lower
// progress or touch a terminal row are ignored, keeping observed progress
// monotonic and terminal states final.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, status storage.JobStatus, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("job id is required")
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range", progress)
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE import_jobs
		    SET status = ?, progress = ?, updated_at = ?
		  WHERE id = ?
		    AND status NOT IN (?, ?)
		    AND progress <= ?`,
		string(status),
		progress,
		toMillis(time.Now().UTC()),
		id,
		string(storage.JobDone),
		string(storage.JobError),
		progress,
	)
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	if affected == 0 {
		return s.jobMissingErr(ctx, id)
	}
	return nil
}

// CompleteJob marks a job DONE with its result summary.
func (s *Store) CompleteJob(ctx context.Context, id string, progress int, result storage.JobResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("job id is required")
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode job result: %w", err)
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE import_jobs
		    SET status = ?, progress = ?, result = ?, log = '', updated_at = ?
		  WHERE id = ?
		    AND status NOT IN (?, ?)`,
		string(storage.JobDone),
		progress,
		string(encoded),
		toMillis(time.Now().UTC()),
		id,
		string(storage.JobDone),
		string(storage.JobError),
	)
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	if affected == 0 {
		return s.jobMissingErr(ctx, id)
	}
	return nil
}

// FailJob marks a job ERROR with a failure description. The result column
// stays empty: result and log are mutually exclusive.
func (s *Store) FailJob(ctx context.Context, id string, log string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE import_jobs
		    SET status = ?, result = NULL, log = ?, updated_at = ?
		  WHERE id = ?
		    AND status NOT IN (?, ?)`,
		string(storage.JobError),
		log,
		toMillis(time.Now().UTC()),
		id,
		string(storage.JobDone),
		string(storage.JobError),
	)
	if err != nil {
		return fmt.Errorf("fail import job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail import job: %w", err)
	}
	if affected == 0 {
		return s.jobMissingErr(ctx, id)
	}
	return nil
}

// jobMissingErr distinguishes a missing row from a guarded no-op update.
func (s *Store) jobMissingErr(ctx context.Context, id string) error {
	var found int
	row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM import_jobs WHERE id = ?`, id)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check import job: %w", err)
	}
	return nil
}

// FindSystemBySlug returns one persisted system.
func (s *Store) FindSystemBySlug(ctx context.Context, slug string) (storage.SystemRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SystemRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SystemRecord{}, fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return storage.SystemRecord{}, fmt.Errorf("slug is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT slug, name, schema, data, is_published, created_at, updated_at
		   FROM rpg_systems
		  WHERE slug = ?`,
		slug,
	)
	return scanSystem(row)
}

// CreateSystem inserts one system record.
func (s *Store) CreateSystem(ctx context.Context, record storage.SystemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	slug := strings.TrimSpace(record.Slug)
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	name := strings.TrimSpace(record.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	schemaJSON, dataJSON, err := encodeSystem(record)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rpg_systems (slug, name, schema, data, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slug,
		name,
		schemaJSON,
		dataJSON,
		boolToInt(record.IsPublished),
		toMillis(createdAt),
		toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create system: %w", err)
	}
	return nil
}

// ReplaceSystem overwrites the schema and data of an existing system. The
// published flag survives replacement.
func (s *Store) ReplaceSystem(ctx context.Context, slug string, record storage.SystemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	schemaJSON, dataJSON, err := encodeSystem(record)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE rpg_systems
		    SET name = ?, schema = ?, data = ?, updated_at = ?
		  WHERE slug = ?`,
		strings.TrimSpace(record.Name),
		schemaJSON,
		dataJSON,
		toMillis(time.Now().UTC()),
		slug,
	)
	if err != nil {
		return fmt.Errorf("replace system: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace system: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSystems returns every persisted system summary ordered by slug.
func (s *Store) ListSystems(ctx context.Context) ([]storage.SystemSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT slug, name, is_published FROM rpg_systems ORDER BY slug ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()

	summaries := []storage.SystemSummary{}
	for rows.Next() {
		var summary storage.SystemSummary
		var published int
		if err := rows.Scan(&summary.Slug, &summary.Name, &published); err != nil {
			return nil, fmt.Errorf("list systems: %w", err)
		}
		summary.IsPublished = published != 0
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	return summaries, nil
}

func encodeSystem(record storage.SystemRecord) (string, string, error) {
	schemaJSON, err := json.Marshal(record.Schema)
	if err != nil {
		return "", "", fmt.Errorf("encode system schema: %w", err)
	}
	dataJSON, err := json.Marshal(record.Data)
	if err != nil {
		return "", "", fmt.Errorf("encode system data: %w", err)
	}
	return string(schemaJSON), string(dataJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSystem(row rowScanner) (storage.SystemRecord, error) {
	var record storage.SystemRecord
	var schemaJSON string
	var dataJSON string
	var published int
	var createdAt int64
	var updatedAt int64
	err := row.Scan(&record.Slug, &record.Name, &schemaJSON, &dataJSON, &published, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SystemRecord{}, storage.ErrNotFound
		}
		return storage.SystemRecord{}, fmt.Errorf("get system: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &record.Schema); err != nil {
		return storage.SystemRecord{}, fmt.Errorf("decode system schema: %w", err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &record.Data); err != nil {
		return storage.SystemRecord{}, fmt.Errorf("decode system data: %w", err)
	}
	record.IsPublished = published != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.JobStore = (*Store)(nil)
var _ storage.SystemStore = (*Store)(nil)
