// Package migrations holds the embedded goose migrations for the aegis
// schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
