// Package database provides the SQLite connection used by the RelayDesk
// audit trail.
//
// The command queue and message logs stay on plain JSON files; SQLite holds
// only data that is queried with filters and pagination.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are "<version>_<name>.up.sql" files applied in version order,
// each in its own transaction. They are additive only: new columns must be
// nullable or carry a default.
//
// All queries use parameterised statements. The database file is created
// with mode 0600.
package database
