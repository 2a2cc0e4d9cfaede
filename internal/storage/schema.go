/**
 * Database Schema.
 *
 * SQL schema for the fingerprinting store: the signature bank and the
 * per-run match verdicts.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package storage

// Schema defines the database structure.
const Schema = `
CREATE TABLE IF NOT EXISTS signatures (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	device       TEXT NOT NULL,
	session      TEXT NOT NULL,
	rows_json    TEXT NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(device, session)
);

CREATE INDEX IF NOT EXISTS idx_signatures_device ON signatures(device);

CREATE TABLE IF NOT EXISTS match_results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run          TEXT NOT NULL,
	capture_name TEXT NOT NULL,
	device       TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_match_results_run ON match_results(run);
`
