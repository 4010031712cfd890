// Package history persists a record of every cleanup run in SQLite.
//
// The pure-Go modernc.org/sqlite driver is used by default so the binary
// builds without cgo. Setting Config.Driver to DriverCGO switches to
// github.com/mattn/go-sqlite3.
//
// Example:
//
//	store, err := history.Open(history.Config{Path: "data/history.db"})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	runs, err := store.List(ctx, history.Query{Domain: "vm", Limit: 20})
package history
