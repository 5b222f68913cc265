// Package migrations embeds the SQL schema files the store applies, in
// filename order, when it opens a database.
package migrations

import "embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
