package db

import "database/sql"

// MigrateUp creates the delivery record schema for the given driver. The
// UNIQUE index on (recipient_id, year) is what makes the duplicate guard
// hold under concurrent writers: the store, not application locking,
// rejects the second insert. All statements are idempotent.
func MigrateUp(database *sql.DB, driver Driver) error {
	var createTable string
	switch driver {
	case DriverSQLite:
		createTable = `
CREATE TABLE IF NOT EXISTS delivery_records (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    recipient_id TEXT NOT NULL,
    year         INTEGER NOT NULL,
    message_id   TEXT,
    message_text TEXT NOT NULL DEFAULT '',
    sent_at      TIMESTAMP NOT NULL,
    status       TEXT NOT NULL CHECK (status IN ('sent', 'failed', 'pending'))
)`
	default:
		createTable = `
CREATE TABLE IF NOT EXISTS delivery_records (
    id           BIGSERIAL PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    year         INTEGER NOT NULL,
    message_id   TEXT,
    message_text TEXT NOT NULL DEFAULT '',
    sent_at      TIMESTAMPTZ NOT NULL,
    status       VARCHAR(10) NOT NULL CHECK (status IN ('sent', 'failed', 'pending'))
)`
	}

	if _, err := database.Exec(createTable); err != nil {
		return err
	}

	indexes := []string{
		// The uniqueness invariant and the wasSent existence check.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_records_recipient_year
    ON delivery_records(recipient_id, year)`,
		// History is read newest first.
		`CREATE INDEX IF NOT EXISTS idx_delivery_records_recipient_sent_at
    ON delivery_records(recipient_id, sent_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := database.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the delivery record schema. Use with caution: this
// deletes the full delivery audit trail.
func MigrateDown(database *sql.DB) error {
	statements := []string{
		`DROP INDEX IF EXISTS idx_delivery_records_recipient_sent_at`,
		`DROP INDEX IF EXISTS idx_delivery_records_recipient_year`,
		`DROP TABLE IF EXISTS delivery_records`,
	}
	for _, stmt := range statements {
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
