package migrations

import "embed"

// FS contains embedded SQLite migrations for importer storage.
//
//go:embed *.sql
var FS embed.FS
