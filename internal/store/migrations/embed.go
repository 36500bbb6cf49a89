package migrations

import "embed"

// FS holds the schema migrations for both engines, one directory per engine.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
