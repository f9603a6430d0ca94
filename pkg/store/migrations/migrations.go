// Package migrations embeds the SQL migration files so the service can run
// them at startup without shelling out to an external migration tool (the
// operator-facing migration runner is explicitly out of scope, §1).
package migrations

import "embed"

// FS holds the embedded goose migration files.
//
//go:embed *.sql
var FS embed.FS
