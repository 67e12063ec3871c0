// Package migration applies versioned SQL schema changes to the SQLite database.
//
// Migrations are files named {version}_{description}.sql (e.g. "001_initial_schema.sql")
// read from an fs.FS, normally an embed.FS compiled into the binary. An optional
// "-- Description:" header line overrides the description derived from the file name.
// Each migration runs in its own transaction and is recorded in the schema_migrations
// table together with the sha256 checksum of its content, so a later edit of an
// already-applied file is reported as drift instead of being silently ignored.
//
//	manager := migration.NewManager(migration.NewScanner(migrations.FS, "."), migration.NewExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
