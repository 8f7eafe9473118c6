package db

import "embed"

// MigrationFS embeds the schema migrations applied by cmd/migrate and AUTO_MIGRATE.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
