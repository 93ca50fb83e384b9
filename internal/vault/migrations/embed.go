// Package migrations embeds the goose migration files for the PostgreSQL
// vault repository.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
