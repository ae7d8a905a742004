// Package migrations embeds the bootstrap schema of the hotel-chain store for goose.
//
// Migration files follow the naming convention: YYYYMMDDHHMMSS_description.sql.
// The production schema is owned elsewhere; these files are applied only when
// DB_MIGRATE is enabled (local development and tests). Every statement must
// run unchanged on both PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
