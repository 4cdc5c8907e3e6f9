package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change of the service, registered by the versioned files.
var Migrations = migrate.NewMigrations()
