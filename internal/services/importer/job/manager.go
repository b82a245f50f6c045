// Package job owns the import job lifecycle: submission, asynchronous
// processing, progress checkpoints, and terminal outcomes.
package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/domain"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/extract"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/schema"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage"
)

// Progress checkpoints reported while a job advances.
const (
	progressExtracting = 10
	progressTextReady  = 30
	progressParsed     = 70
	progressDone       = 100
)

// Validation errors returned synchronously by Submit. No job is created
// when one of these is reported.
var (
	ErrEmptyDocument   = errors.New("document is empty")
	ErrEmptySystemName = errors.New("system name is required")
	ErrUnsupportedFile = errors.New("unsupported document type")
	ErrUnusableSlug    = errors.New("system name produces an empty slug")
)

// SubmitRequest carries one document submission.
type SubmitRequest struct {
	Filename   string
	SystemName string
	Document   []byte
}

// Manager creates jobs, runs the import pipeline on detached goroutines,
// and records every outcome on the job record. It is safe for concurrent
// use; jobs for the same system name race on the final upsert and the
// last writer wins.
type Manager struct {
	jobs    storage.JobStore
	systems storage.SystemStore
	texts   extract.Extractor
	tracer  trace.Tracer

	wg sync.WaitGroup
}

// NewManager creates an import job manager.
func NewManager(jobs storage.JobStore, systems storage.SystemStore, texts extract.Extractor) *Manager {
	return &Manager{
		jobs:    jobs,
		systems: systems,
		texts:   texts,
		tracer:  otel.Tracer("importer/job"),
	}
}

// Submit validates the request, creates a PENDING job, and schedules
// processing without blocking the caller. The returned id is immediately
// pollable through GetJob.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if m == nil || m.jobs == nil || m.systems == nil || m.texts == nil {
		return "", fmt.Errorf("job manager is not configured")
	}
	if len(req.Document) == 0 {
		return "", ErrEmptyDocument
	}
	req.SystemName = strings.TrimSpace(req.SystemName)
	if req.SystemName == "" {
		return "", ErrEmptySystemName
	}
	if !extract.SupportedFilename(req.Filename) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, req.Filename)
	}
	if domain.Slugify(req.SystemName) == "" {
		return "", ErrUnusableSlug
	}

	jobID := uuid.NewString()
	err := m.jobs.CreateJob(ctx, storage.ImportJob{
		ID:       jobID,
		Filename: strings.TrimSpace(req.Filename),
		Status:   storage.JobPending,
		Progress: 0,
	})
	if err != nil {
		return "", fmt.Errorf("create import job: %w", err)
	}

	// The caller only waits for the job row; parsing continues after the
	// submission context is gone.
	work := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.process(work, jobID, req)
	}()
	return jobID, nil
}

// GetJob returns a consistent snapshot of one job.
func (m *Manager) GetJob(ctx context.Context, id string) (storage.ImportJob, error) {
	if m == nil || m.jobs == nil {
		return storage.ImportJob{}, fmt.Errorf("job manager is not configured")
	}
	return m.jobs.GetJob(ctx, id)
}

// Wait blocks until every in-flight job has reached a terminal state.
func (m *Manager) Wait() {
	if m == nil {
		return
	}
	m.wg.Wait()
}

// process runs the import pipeline for one job. Every failure, including
// panics, lands on the job record as ERROR; nothing escapes to the
// submitter.
func (m *Manager) process(ctx context.Context, jobID string, req SubmitRequest) {
	ctx, span := m.tracer.Start(ctx, "importer.process",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("job.filename", req.Filename),
		))
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			m.fail(ctx, jobID, fmt.Sprintf("import panic: %v", recovered))
		}
	}()

	if err := m.run(ctx, jobID, req); err != nil {
		m.fail(ctx, jobID, err.Error())
	}
}

func (m *Manager) run(ctx context.Context, jobID string, req SubmitRequest) error {
	if err := m.jobs.UpdateJobProgress(ctx, jobID, storage.JobProcessing, progressExtracting); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	text, err := m.texts.ExtractText(ctx, req.Filename, req.Document)
	if err != nil {
		return fmt.Errorf("extract document text: %w", err)
	}
	if err := m.jobs.UpdateJobProgress(ctx, jobID, storage.JobProcessing, progressTextReady); err != nil {
		return fmt.Errorf("record text progress: %w", err)
	}

	lines := domain.NormalizeLines(text)
	data := domain.Extract(lines)
	if err := m.jobs.UpdateJobProgress(ctx, jobID, storage.JobProcessing, progressParsed); err != nil {
		return fmt.Errorf("record parse progress: %w", err)
	}

	slug := domain.Slugify(req.SystemName)
	record := storage.SystemRecord{
		Name:   req.SystemName,
		Slug:   slug,
		Schema: schema.Synthesize(req.SystemName),
		Data:   data,
	}
	if err := m.upsertSystem(ctx, slug, record); err != nil {
		return fmt.Errorf("persist system %q: %w", slug, err)
	}

	result := storage.JobResult{
		SystemSlug:   slug,
		OriginsFound: len(data.Origins),
		SpellsFound:  len(data.Spells),
		WeaponsFound: len(data.Weapons),
	}
	if err := m.jobs.CompleteJob(ctx, jobID, progressDone, result); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	log.Printf("import job %s done: system=%s origins=%d spells=%d weapons=%d",
		jobID, slug, result.OriginsFound, result.SpellsFound, result.WeaponsFound)
	return nil
}

// upsertSystem inserts the system or wholly replaces an existing record
// with the same slug. A create losing a race to a concurrent job falls
// back to replace.
func (m *Manager) upsertSystem(ctx context.Context, slug string, record storage.SystemRecord) error {
	_, err := m.systems.FindSystemBySlug(ctx, slug)
	switch {
	case err == nil:
		return m.systems.ReplaceSystem(ctx, slug, record)
	case errors.Is(err, storage.ErrNotFound):
		createErr := m.systems.CreateSystem(ctx, record)
		if errors.Is(createErr, storage.ErrAlreadyExists) {
			return m.systems.ReplaceSystem(ctx, slug, record)
		}
		return createErr
	default:
		return err
	}
}

func (m *Manager) fail(ctx context.Context, jobID string, message string) {
	log.Printf("import job %s failed: %s", jobID, message)
	if err := m.jobs.FailJob(ctx, jobID, message); err != nil {
		log.Printf("record failure for job %s: %v", jobID, err)
	}
}
