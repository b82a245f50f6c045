// Package server hosts the sourcebook importer service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	importerhttp "github.com/marcusguelfi/rpg-plataform/internal/services/importer/api/http"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/extract"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/ingest"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/job"
	storagesqlite "github.com/marcusguelfi/rpg-plataform/internal/services/importer/storage/sqlite"
)

// Server hosts the importer HTTP API and its background pipeline.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *storagesqlite.Store
	manager    *job.Manager
	dropDir    string
}

// New creates a configured importer server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured importer server on the given address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openStore()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	auth, err := importerhttp.LoadAuthConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	manager := job.NewManager(store, store, newExtractor())
	service := importerhttp.NewService(manager, store)
	httpServer := &http.Server{
		Handler:           importerhttp.NewMux(service, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
		manager:    manager,
		dropDir:    strings.TrimSpace(os.Getenv("RPG_PLATAFORM_IMPORTER_DROP_DIR")),
	}, nil
}

// Addr returns the listener address for the importer server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an importer server until the context ends.
func Run(ctx context.Context, port int) error {
	srv, err := New(port)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// RunWithAddr creates and serves an importer server on the given address.
func RunWithAddr(ctx context.Context, addr string) error {
	srv, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the importer server and blocks until it stops or the
// context ends. In-flight import jobs finish before shutdown returns.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	if s.dropDir != "" {
		go func() {
			err := ingest.Run(ctx, ingest.Config{Dir: s.dropDir, InitialScan: true}, s.manager)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("ingest stopped: %v", err)
			}
		}()
	}

	log.Printf("importer server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown importer server: %v", err)
		}
		s.manager.Wait()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		s.manager.Wait()
		return handleErr(err)
	}
}

// newExtractor builds the document text extractor. PDF extraction is
// delegated to the external service when its URL is configured.
func newExtractor() extract.Extractor {
	router := extract.Router{Plain: extract.PlainText{}}
	if url := strings.TrimSpace(os.Getenv("RPG_PLATAFORM_IMPORTER_EXTRACT_URL")); url != "" {
		router.PDF = extract.NewServiceClient(url)
	}
	return router
}

func openStore() (*storagesqlite.Store, error) {
	path := strings.TrimSpace(os.Getenv("RPG_PLATAFORM_IMPORTER_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "importer.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := storagesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close importer store: %v", err)
	}
}
