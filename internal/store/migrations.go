package store

import (
	"database/sql"
	"fmt"

	"testcrafter/internal/logging"
)

// Migration adds a column that older archives lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// archiveMigrations lists columns added after the first archive schema.
// Fresh databases get them from CREATE TABLE; older files are patched here.
var archiveMigrations = []Migration{
	{Table: "runs", Column: "updated_at", Def: "TEXT"},
}

// RunMigrations applies any missing column migrations to db.
func RunMigrations(db *sql.DB) error {
	applied := 0
	for _, m := range archiveMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("Skipping migration for missing table %s", m.Table)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", m.Table, m.Column, err)
		}
		applied++
		logging.Store("Migrated archive: added %s.%s", m.Table, m.Column)
	}
	if applied > 0 {
		logging.StoreDebug("Applied %d archive migrations", applied)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}
