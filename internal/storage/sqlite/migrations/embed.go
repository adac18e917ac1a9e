// Package migrations embeds the SQLite schema for the registration store.
package migrations

import "embed"

// FS contains embedded SQLite migrations for registration storage.
//
//go:embed *.sql
var FS embed.FS
