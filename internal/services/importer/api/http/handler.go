// Package http exposes the importer service over a JSON HTTP API.
package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marcusguelfi/rpg-plataform/internal/platform/httpx"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/job"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage"
)

// DefaultMaxUploadBytes caps document uploads at 32 MiB.
const DefaultMaxUploadBytes = 32 << 20

// Service handles importer API requests.
type Service struct {
	jobs           *job.Manager
	systems        storage.SystemStore
	maxUploadBytes int64
}

// NewService creates the importer API service.
func NewService(jobs *job.Manager, systems storage.SystemStore) *Service {
	return &Service{
		jobs:           jobs,
		systems:        systems,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type jobResponse struct {
	ID       string             `json:"id"`
	Status   string             `json:"status"`
	Progress int                `json:"progress"`
	Result   *storage.JobResult `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type systemResponse struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Schema      any    `json:"schema"`
	Data        any    `json:"data"`
	IsPublished bool   `json:"isPublished"`
}

type systemSummaryResponse struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	IsPublished bool   `json:"isPublished"`
}

// HandleSubmitImport accepts a multipart document upload and enqueues an
// import job. Responds 202 with the job id.
func (s *Service) HandleSubmitImport(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.jobs == nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "importer is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "multipart form is required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "read uploaded file")
		return
	}

	jobID, err := s.jobs.Submit(httpx.RequestContext(r), job.SubmitRequest{
		Filename:   header.Filename,
		SystemName: r.FormValue("systemName"),
		Document:   document,
	})
	if err != nil {
		_ = httpx.WriteJSONError(w, submitStatus(err), err.Error())
		return
	}
	_ = httpx.WriteJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

// submitStatus maps submission failures to HTTP status codes. Validation
// errors are the caller's fault; everything else is ours.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, job.ErrEmptyDocument),
		errors.Is(err, job.ErrEmptySystemName),
		errors.Is(err, job.ErrUnsupportedFile),
		errors.Is(err, job.ErrUnusableSlug):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleJobStatus returns a job snapshot by id.
func (s *Service) HandleJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	if s == nil || s.jobs == nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "importer is not configured")
		return
	}
	snapshot, err := s.jobs.GetJob(httpx.RequestContext(r), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = httpx.WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("job %q not found", id))
			return
		}
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "load job")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, jobResponse{
		ID:       snapshot.ID,
		Status:   string(snapshot.Status),
		Progress: snapshot.Progress,
		Result:   snapshot.Result,
		Error:    snapshot.Log,
	})
}

// HandleSystemDetail returns a persisted system by slug.
func (s *Service) HandleSystemDetail(w http.ResponseWriter, r *http.Request, slug string) {
	if s == nil || s.systems == nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "importer is not configured")
		return
	}
	record, err := s.systems.FindSystemBySlug(httpx.RequestContext(r), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = httpx.WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("system %q not found", slug))
			return
		}
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "load system")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, systemResponse{
		Name:        record.Name,
		Slug:        record.Slug,
		Schema:      record.Schema,
		Data:        record.Data,
		IsPublished: record.IsPublished,
	})
}

// HandleSystemList returns summaries for every persisted system.
func (s *Service) HandleSystemList(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.systems == nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "importer is not configured")
		return
	}
	summaries, err := s.systems.ListSystems(httpx.RequestContext(r))
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "list systems")
		return
	}
	payload := make([]systemSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, systemSummaryResponse{
			Name:        summary.Name,
			Slug:        summary.Slug,
			IsPublished: summary.IsPublished,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

// HandleHealthz reports liveness.
func (s *Service) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// trailingSegment extracts a single path segment after the prefix; empty
// and nested paths report false.
func trailingSegment(path, prefix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || rest == path {
		return "", false
	}
	if strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
