// Package migrations embeds the SQL schema migrations applied by goose.
package migrations

import "embed"

// FS holds the migration files under sql/.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory inside FS that goose reads from.
const Dir = "sql"
