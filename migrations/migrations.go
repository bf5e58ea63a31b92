// Package migrations embeds the SQL schema files so that binaries and
// integration tests apply exactly the same schema.
package migrations

import "embed"

// Files holds every NNN_description.sql file in this directory.
//
//go:embed *.sql
var Files embed.FS
