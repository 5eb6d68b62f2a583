// Package database provides SQLite connectivity for API Studio Core.
//
// This package manages:
//   - Opening the database with foreign keys enforced and optional WAL mode
//   - Versioned schema migrations read from an fs.FS (see package migrations)
//   - A WithTx helper for multi-statement writes
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions because it holds password hashes.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
