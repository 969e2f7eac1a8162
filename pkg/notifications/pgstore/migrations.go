package pgstore

import "embed"

// Migrations holds the goose migrations of the notification schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the files.
const MigrationsDir = "migrations"
