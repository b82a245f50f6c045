// Package storage defines persistence contracts for importer state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/domain"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/schema"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// JobStatus is the lifecycle state of an import job.
type JobStatus string

// Import job lifecycle states. Done and Error are terminal.
const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobDone       JobStatus = "DONE"
	JobError      JobStatus = "ERROR"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobError
}

// JobResult summarizes a successful import.
type JobResult struct {
	SystemSlug   string `json:"systemSlug"`
	OriginsFound int    `json:"originsFound"`
	SpellsFound  int    `json:"spellsFound"`
	WeaponsFound int    `json:"weaponsFound"`
}

// ImportJob is one tracked unit of asynchronous import work. Result is set
// only on DONE; Log only on ERROR.
type ImportJob struct {
	ID        string
	Filename  string
	Status    JobStatus
	Progress  int
	Result    *JobResult
	Log       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SystemRecord is the persisted artifact of a completed import, keyed by
// slug.
type SystemRecord struct {
	Name        string
	Slug        string
	Schema      schema.Schema
	Data        domain.SystemData
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SystemSummary is one row of a system listing.
type SystemSummary struct {
	Name        string
	Slug        string
	IsPublished bool
}

// JobStore persists import jobs. Progress updates must keep observed
// progress non-decreasing and must never modify a terminal job.
type JobStore interface {
	CreateJob(ctx context.Context, job ImportJob) error
	GetJob(ctx context.Context, id string) (ImportJob, error)
	UpdateJobProgress(ctx context.Context, id string, status JobStatus, progress int) error
	CompleteJob(ctx context.Context, id string, progress int, result JobResult) error
	FailJob(ctx context.Context, id string, log string) error
}

// SystemStore persists imported rule systems. Systems are never deleted by
// the importer.
type SystemStore interface {
	FindSystemBySlug(ctx context.Context, slug string) (SystemRecord, error)
	CreateSystem(ctx context.Context, record SystemRecord) error
	ReplaceSystem(ctx context.Context, slug string, record SystemRecord) error
	ListSystems(ctx context.Context) ([]SystemSummary, error)
}
