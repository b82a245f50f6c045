// Package extract converts raw document bytes into plain text. PDF
// documents are delegated to an external extraction service; plain-text
// documents pass through directly.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor converts one document into its raw text.
type Extractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

// Supported extensions, lowercase with dot.
var supportedExts = map[string]struct{}{
	".pdf": {},
	".txt": {},
	".md":  {},
}

// SupportedFilename reports whether the filename carries an accepted
// document extension.
func SupportedFilename(filename string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	_, ok := supportedExts[ext]
	return ok
}

// PlainText extracts text from UTF-8 documents without conversion.
type PlainText struct{}

// ExtractText validates and returns the document bytes as text.
func (PlainText) ExtractText(_ context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("document %q is empty", filename)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document %q is not valid UTF-8 text", filename)
	}
	return string(data), nil
}

// Router dispatches extraction by filename extension.
type Router struct {
	PDF   Extractor
	Plain Extractor
}

// ExtractText routes the document to the matching extractor.
func (r Router) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	switch ext {
	case ".pdf":
		if r.PDF == nil {
			return "", fmt.Errorf("no PDF extractor configured")
		}
		return r.PDF.ExtractText(ctx, filename, data)
	case ".txt", ".md":
		if r.Plain == nil {
			return "", fmt.Errorf("no plain-text extractor configured")
		}
		return r.Plain.ExtractText(ctx, filename, data)
	default:
		return "", fmt.Errorf("unsupported document type %q", ext)
	}
}

var _ Extractor = PlainText{}
var _ Extractor = Router{}
