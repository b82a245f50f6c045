package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/job"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	jobs    map[string]storage.ImportJob
	systems map[string]storage.SystemRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:    make(map[string]storage.ImportJob),
		systems: make(map[string]storage.SystemRecord),
	}
}

func (s *fakeStore) CreateJob(_ context.Context, row storage.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[row.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.jobs[row.ID] = row
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, id string) (storage.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[id]
	if !ok {
		return storage.ImportJob{}, storage.ErrNotFound
	}
	return row, nil
}

func (s *fakeStore) UpdateJobProgress(_ context.Context, id string, status storage.JobStatus, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if row.Status.Terminal() || progress < row.Progress {
		return nil
	}
	row.Status = status
	row.Progress = progress
	s.jobs[id] = row
	return nil
}

func (s *fakeStore) CompleteJob(_ context.Context, id string, progress int, result storage.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if row.Status.Terminal() {
		return nil
	}
	row.Status = storage.JobDone
	row.Progress = progress
	row.Result = &result
	row.Log = ""
	s.jobs[id] = row
	return nil
}

func (s *fakeStore) FailJob(_ context.Context, id string, log string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if row.Status.Terminal() {
		return nil
	}
	row.Status = storage.JobError
	row.Result = nil
	row.Log = log
	s.jobs[id] = row
	return nil
}

func (s *fakeStore) FindSystemBySlug(_ context.Context, slug string) (storage.SystemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.systems[slug]
	if !ok {
		return storage.SystemRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) CreateSystem(_ context.Context, record storage.SystemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.systems[record.Slug]; ok {
		return storage.ErrAlreadyExists
	}
	s.systems[record.Slug] = record
	return nil
}

func (s *fakeStore) ReplaceSystem(_ context.Context, slug string, record storage.SystemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.systems[slug]; !ok {
		return storage.ErrNotFound
	}
	record.Slug = slug
	s.systems[slug] = record
	return nil
}

func (s *fakeStore) ListSystems(_ context.Context) ([]storage.SystemSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]storage.SystemSummary, 0, len(s.systems))
	for _, record := range s.systems {
		summaries = append(summaries, storage.SystemSummary{
			Name:        record.Name,
			Slug:        record.Slug,
			IsPublished: record.IsPublished,
		})
	}
	return summaries, nil
}

type staticExtractor struct{ text string }

func (e staticExtractor) ExtractText(context.Context, string, []byte) (string, error) {
	return e.text, nil
}

const testSecret = "test-secret"

func testAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:   []byte(testSecret),
		Issuer:   "rpg-plataform",
		Audience: "importer",
	}
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "user-1",
		"iss":  "rpg-plataform",
		"aud":  "importer",
		"exp":  time.Now().Add(time.Hour).Unix(),
		"role": role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestMux(t *testing.T) (*http.ServeMux, *fakeStore, *job.Manager) {
	t.Helper()
	store := newFakeStore()
	manager := job.NewManager(store, store, staticExtractor{text: "ORIGENS\nOrigem: Mercenário\nLutou em guerras."})
	service := NewService(manager, store)
	return NewMux(service, testAuthConfig()), store, manager
}

func multipartBody(t *testing.T, filename, systemName string, document []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if systemName != "" {
		if err := writer.WriteField("systemName", systemName); err != nil {
			t.Fatalf("write systemName field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(document); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestSubmitImportAcceptsUpload(t *testing.T) {
	t.Parallel()
	mux, _, manager := newTestMux(t)

	body, contentType := multipartBody(t, "book.txt", "Ordem Paranormal", []byte("doc"))
	req := httptest.NewRequest(http.MethodPost, RouteImport, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleGameMaster))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("jobId is empty")
	}
	manager.Wait()

	statusReq := httptest.NewRequest(http.MethodGet, RouteImportPrefix+resp.JobID, nil)
	statusReq.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin))
	statusRR := httptest.NewRecorder()
	mux.ServeHTTP(statusRR, statusReq)
	if statusRR.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want %d", statusRR.Code, http.StatusOK)
	}
	var snapshot jobResponse
	if err := json.Unmarshal(statusRR.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Status != string(storage.JobDone) {
		t.Fatalf("snapshot.Status = %q, want %q (error %q)", snapshot.Status, storage.JobDone, snapshot.Error)
	}
	if snapshot.Result == nil || snapshot.Result.SystemSlug != "ordem-paranormal" {
		t.Fatalf("snapshot.Result = %+v, want slug ordem-paranormal", snapshot.Result)
	}
}

func TestSubmitImportRejectsMissingToken(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	body, contentType := multipartBody(t, "book.txt", "Ordem", []byte("doc"))
	req := httptest.NewRequest(http.MethodPost, RouteImport, body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSubmitImportRejectsDisallowedRole(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	body, contentType := multipartBody(t, "book.txt", "Ordem", []byte("doc"))
	req := httptest.NewRequest(http.MethodPost, RouteImport, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "PLAYER"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestSubmitImportRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	claims := jwt.MapClaims{
		"sub":  "user-1",
		"iss":  "rpg-plataform",
		"aud":  "importer",
		"exp":  time.Now().Add(-time.Hour).Unix(),
		"role": RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	body, contentType := multipartBody(t, "book.txt", "Ordem", []byte("doc"))
	req := httptest.NewRequest(http.MethodPost, RouteImport, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rr.Body.String(), "expired") {
		t.Fatalf("body = %q, want expiry message", rr.Body.String())
	}
}

func TestSubmitImportValidationErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		filename   string
		systemName string
		document   []byte
	}{
		{name: "missing file", filename: "", systemName: "Ordem", document: nil},
		{name: "empty document", filename: "book.txt", systemName: "Ordem", document: []byte{}},
		{name: "missing system name", filename: "book.txt", systemName: "", document: []byte("doc")},
		{name: "unsupported extension", filename: "book.docx", systemName: "Ordem", document: []byte("doc")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mux, _, _ := newTestMux(t)

			body, contentType := multipartBody(t, tc.filename, tc.systemName, tc.document)
			req := httptest.NewRequest(http.MethodPost, RouteImport, body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin))
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
		})
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, RouteImportPrefix+"missing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestJobStatusRequiresToken(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, RouteImportPrefix+"job-1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSystemDetailReturnsRecord(t *testing.T) {
	t.Parallel()
	mux, store, _ := newTestMux(t)

	err := store.CreateSystem(context.Background(), storage.SystemRecord{
		Name: "Ordem Paranormal",
		Slug: "ordem-paranormal",
	})
	if err != nil {
		t.Fatalf("CreateSystem() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, RouteSystemsPrefix+"ordem-paranormal", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp systemResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Slug != "ordem-paranormal" || resp.Name != "Ordem Paranormal" {
		t.Fatalf("response = %+v, want persisted system", resp)
	}
}

func TestSystemDetailUnknownSlug(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, RouteSystemsPrefix+"missing", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSystemListReturnsSummaries(t *testing.T) {
	t.Parallel()
	mux, store, _ := newTestMux(t)

	for _, record := range []storage.SystemRecord{
		{Name: "Ordem", Slug: "ordem"},
		{Name: "Tormenta", Slug: "tormenta", IsPublished: true},
	} {
		if err := store.CreateSystem(context.Background(), record); err != nil {
			t.Fatalf("CreateSystem(%s) error = %v", record.Slug, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, RouteSystems, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp []systemSummaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len(resp) = %d, want 2", len(resp))
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, RouteHealthz, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if body, err := io.ReadAll(rr.Body); err != nil || !strings.Contains(string(body), "ok") {
		t.Fatalf("body = %q, want ok", string(body))
	}
}

func TestSubmitImportRejectsGet(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, RouteImport, nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
