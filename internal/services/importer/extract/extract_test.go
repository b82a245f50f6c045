package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSupportedFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		want     bool
	}{
		{"livro.pdf", true},
		{"LIVRO.PDF", true},
		{"notes.txt", true},
		{"rules.md", true},
		{"image.png", false},
		{"archive.zip", false},
		{"noextension", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := SupportedFilename(tc.filename); got != tc.want {
			t.Fatalf("SupportedFilename(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestPlainTextPassesThroughUTF8(t *testing.T) {
	t.Parallel()

	text, err := PlainText{}.ExtractText(context.Background(), "a.txt", []byte("ORIGENS\nOrigem: X"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "ORIGENS\nOrigem: X" {
		t.Fatalf("text = %q", text)
	}
}

func TestPlainTextRejectsBinary(t *testing.T) {
	t.Parallel()

	if _, err := (PlainText{}).ExtractText(context.Background(), "a.txt", []byte{0xff, 0xfe, 0x00}); err == nil {
		t.Fatal("expected invalid UTF-8 error")
	}
}

func TestPlainTextRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := (PlainText{}).ExtractText(context.Background(), "a.txt", nil); err == nil {
		t.Fatal("expected empty document error")
	}
}

func TestRouterDispatchesByExtension(t *testing.T) {
	t.Parallel()

	router := Router{Plain: PlainText{}}
	if _, err := router.ExtractText(context.Background(), "a.txt", []byte("x")); err != nil {
		t.Fatalf("plain route: %v", err)
	}
	if _, err := router.ExtractText(context.Background(), "a.pdf", []byte("x")); err == nil {
		t.Fatal("expected error without a PDF extractor")
	}
	if _, err := router.ExtractText(context.Background(), "a.exe", []byte("x")); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestServiceClientParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("path = %q, want /extract", r.URL.Path)
		}
		if got := r.Header.Get("X-Filename"); got != "livro.pdf" {
			t.Errorf("filename header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ORIGENS\nOrigem: X","pages":1}`))
	}))
	defer srv.Close()

	client := NewServiceClient(srv.URL)
	text, err := client.ExtractText(context.Background(), "livro.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "ORIGENS\nOrigem: X" {
		t.Fatalf("text = %q", text)
	}
}

func TestServiceClientSurfacesServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"","error":"encrypted document"}`))
	}))
	defer srv.Close()

	if _, err := NewServiceClient(srv.URL).ExtractText(context.Background(), "x.pdf", []byte("x")); err == nil {
		t.Fatal("expected service error")
	}
}

func TestServiceClientRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewServiceClient(srv.URL).ExtractText(context.Background(), "x.pdf", []byte("x")); err == nil {
		t.Fatal("expected status error")
	}
}
