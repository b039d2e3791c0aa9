// Package database provides the SQLite connection used to persist the pool
// controller's state between restarts.
//
// The connection runs in WAL mode with a single writer. Schema changes are
// plain SQL files applied in version order by Migrate; each file pair is
// named YYYYMMDD_HHMMSS_description.{up,down}.sql.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
