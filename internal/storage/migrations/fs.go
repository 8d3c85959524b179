package migrations

import "embed"

// FS holds the SQL migrations so the binary carries its own schema.
//
//go:embed *.sql
var FS embed.FS
