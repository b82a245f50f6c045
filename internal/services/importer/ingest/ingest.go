// Package ingest watches a drop directory and submits new documents as
// import jobs.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/extract"
	"github.com/marcusguelfi/rpg-plataform/internal/services/importer/job"
)

// Submitter accepts import submissions. *job.Manager satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req job.SubmitRequest) (string, error)
}

// Config controls the drop directory watcher.
type Config struct {
	// Dir is the watched directory. Empty disables ingestion.
	Dir string
	// Debounce coalesces rapid write bursts for the same file.
	Debounce time.Duration
	// InitialScan submits files already present when the watcher starts.
	InitialScan bool
}

const defaultDebounce = 500 * time.Millisecond

// Run watches the drop directory until the context is canceled. Every
// stable supported file is read and submitted as an import job with the
// system name derived from the filename stem. Failed submissions are
// logged and skipped; the watcher keeps running.
func Run(ctx context.Context, cfg Config, submitter Submitter) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("drop directory is required")
	}
	if submitter == nil {
		return fmt.Errorf("submitter is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create directory watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}
	log.Printf("ingest watching %s", cfg.Dir)

	if cfg.InitialScan {
		scanExisting(ctx, cfg.Dir, submitter)
	}

	var timer *time.Timer
	pending := make(map[string]struct{})
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !extract.SupportedFilename(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cfg.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			for path := range pending {
				delete(pending, path)
				submitFile(ctx, submitter, path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("ingest watcher error: %v", err)
		}
	}
}

// scanExisting submits supported files already in the drop directory.
func scanExisting(ctx context.Context, dir string, submitter Submitter) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("ingest initial scan: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !extract.SupportedFilename(path) {
			continue
		}
		submitFile(ctx, submitter, path)
	}
}

func submitFile(ctx context.Context, submitter Submitter, path string) {
	document, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ingest read %s: %v", path, err)
		return
	}
	name := SystemNameFromPath(path)
	jobID, err := submitter.Submit(ctx, job.SubmitRequest{
		Filename:   filepath.Base(path),
		SystemName: name,
		Document:   document,
	})
	if err != nil {
		log.Printf("ingest submit %s: %v", path, err)
		return
	}
	log.Printf("ingest submitted %s as job %s (system %q)", path, jobID, name)
}

// SystemNameFromPath derives a human-readable system name from the
// filename stem. Hyphens and underscores become spaces.
func SystemNameFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return strings.Join(strings.Fields(stem), " ")
}
