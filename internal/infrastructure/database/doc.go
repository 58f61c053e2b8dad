// Package database provides the SQLite connection used for device
// registrations and dashboard layouts.
//
// Open applies WAL mode and the busy timeout from configuration and limits
// the pool to one connection. Migrate applies versioned SQL files from any
// fs.FS, normally migrations.FS:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive. New columns must be nullable or carry a default.
package database
