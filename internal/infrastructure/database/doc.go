// Package database provides the SQLite connection shared by the metric
// store and the query API.
//
// This package manages:
//   - Database connection with WAL mode so queries can run during a pass
//   - Versioned schema migrations loaded from an fs.FS
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql, with an
// optional .down.sql used by MigrateDown. The migrations package embeds
// them and registers the filesystem with this package at init time.
package database
