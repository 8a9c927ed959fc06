// Package migrations contiene el esquema de Postgres en formato golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
