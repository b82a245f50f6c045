package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage"
)

const testSecret = "app-test-secret"

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPG_PLATAFORM_IMPORTER_DB_PATH", filepath.Join(t.TempDir(), "importer.db"))
	t.Setenv("RPG_PLATAFORM_IMPORTER_JWT_SECRET", testSecret)
	t.Setenv("RPG_PLATAFORM_IMPORTER_EXTRACT_URL", "")
	t.Setenv("RPG_PLATAFORM_IMPORTER_DROP_DIR", "")
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "tester",
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

// TestServeStopsOnContext verifies the server serves and stops on cancel.
func TestServeStopsOnContext(t *testing.T) {
	setTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := New(0)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	base := "http://" + srv.Addr()
	waitForHealthz(t, base)

	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

// TestImportRoundTrip uploads a plain-text sourcebook and polls the job
// to completion through the public API.
func TestImportRoundTrip(t *testing.T) {
	setTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := New(0)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go func() { _ = srv.Serve(ctx) }()

	base := "http://" + srv.Addr()
	waitForHealthz(t, base)

	document := "ORIGENS\nOrigem: Mercenário\nLutou em guerras antigas.\n"
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("systemName", "Ordem Paranormal"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "ordem.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(document)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/import", &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ADMIN"))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("submit import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	var accepted struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatal("jobId is empty")
	}

	snapshot := pollJob(t, base, accepted.JobID)
	if snapshot.Status != string(storage.JobDone) {
		t.Fatalf("job status = %q, want %q (error %q)", snapshot.Status, storage.JobDone, snapshot.Error)
	}
	if snapshot.Result == nil || snapshot.Result.SystemSlug != "ordem-paranormal" {
		t.Fatalf("job result = %+v, want slug ordem-paranormal", snapshot.Result)
	}

	systemResp, err := http.Get(base + "/api/systems/ordem-paranormal")
	if err != nil {
		t.Fatalf("fetch system: %v", err)
	}
	defer systemResp.Body.Close()
	if systemResp.StatusCode != http.StatusOK {
		t.Fatalf("system status = %d, want %d", systemResp.StatusCode, http.StatusOK)
	}
}

type jobSnapshot struct {
	ID       string             `json:"id"`
	Status   string             `json:"status"`
	Progress int                `json:"progress"`
	Result   *storage.JobResult `json:"result"`
	Error    string             `json:"error"`
}

func pollJob(t *testing.T, base, id string) jobSnapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		req, err := http.NewRequest(http.MethodGet, base+"/api/import/"+id, nil)
		if err != nil {
			t.Fatalf("build poll request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+signToken(t, "GM"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("poll job: %v", err)
		}
		var snapshot jobSnapshot
		decodeErr := json.NewDecoder(resp.Body).Decode(&snapshot)
		resp.Body.Close()
		if decodeErr != nil {
			t.Fatalf("decode job snapshot: %v", decodeErr)
		}
		if snapshot.Status == string(storage.JobDone) || snapshot.Status == string(storage.JobError) {
			return snapshot
		}
		select {
		case <-deadline:
			t.Fatalf("job %s did not finish: %+v", id, snapshot)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func waitForHealthz(t *testing.T, base string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatalf("health check never passed for %s", base)
		case <-time.After(50 * time.Millisecond):
		}
	}
}
