// Package migrations embeds the numbered schema migrations for each SQL
// backend. Files are named NNN_name.sql.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
