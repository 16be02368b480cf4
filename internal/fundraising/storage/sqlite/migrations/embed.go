package migrations

import "embed"

// FS contains embedded SQLite migrations for the fundraising ledger.
//
//go:embed *.sql
var FS embed.FS
