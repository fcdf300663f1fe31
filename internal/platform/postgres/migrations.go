package postgres

import "embed"

// Migrations holds the goose SQL migrations, applied by the server's -migrate flag.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
