package store

// MigrationHistory records a schema version applied to the database.
type MigrationHistory struct {
	Version   string
	CreatedTs int64
}

type UpsertMigrationHistory struct {
	Version   string
	CreatedTs int64
}
