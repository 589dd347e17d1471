// Package migrations embeds the SQLite schema for recorded actions.
package migrations

import "embed"

// FS holds the ordered *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
