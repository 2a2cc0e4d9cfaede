/**
 * SQLite Implementation.
 *
 * Implements the Storage interface using SQLite3, suitable for
 * standalone and embedded deployment scenarios.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kleaSCM/iotscope/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Implements the Storage interface for SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// Creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Applies the schema to the database.
func (s *SQLiteStorage) Migrate() error {
	_, err := s.db.Exec(Schema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Saves or replaces a signature.
func (s *SQLiteStorage) SaveSignature(sig *models.Signature) error {
	blob, err := json.Marshal(sig.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode signature rows: %w", err)
	}

	query := `
	INSERT INTO signatures (device, session, rows_json)
	VALUES (?, ?, ?)
	ON CONFLICT(device, session) DO UPDATE SET
		rows_json = excluded.rows_json;
	`
	if _, err := s.db.Exec(query, sig.Device, sig.Session, string(blob)); err != nil {
		return fmt.Errorf("failed to save signature: %w", err)
	}
	return nil
}

// Retrieves one signature, nil when absent.
func (s *SQLiteStorage) GetSignature(device, session string) (*models.Signature, error) {
	query := `SELECT rows_json FROM signatures WHERE device = ? AND session = ?`
	row := s.db.QueryRow(query, device, session)

	var blob string
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sig := &models.Signature{Device: device, Session: session}
	if err := json.Unmarshal([]byte(blob), &sig.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode signature rows: %w", err)
	}
	return sig, nil
}

// Lists every stored signature ordered by device then session.
func (s *SQLiteStorage) ListSignatures() ([]*models.Signature, error) {
	query := `SELECT device, session, rows_json FROM signatures ORDER BY device, session`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []*models.Signature
	for rows.Next() {
		var sig models.Signature
		var blob string
		if err := rows.Scan(&sig.Device, &sig.Session, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &sig.Rows); err != nil {
			return nil, fmt.Errorf("failed to decode signature rows: %w", err)
		}
		sigs = append(sigs, &sig)
	}
	return sigs, rows.Err()
}

// Records one device verdict of a match run.
func (s *SQLiteStorage) SaveMatchResult(run, captureName, device string, matched bool) error {
	query := `INSERT INTO match_results (run, capture_name, device, matched) VALUES (?, ?, ?, ?)`
	flag := 0
	if matched {
		flag = 1
	}
	if _, err := s.db.Exec(query, run, captureName, device, flag); err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}
	return nil
}

// Lists the verdicts of one run in insertion order.
func (s *SQLiteStorage) ListMatchResults(run string) ([]MatchResult, error) {
	query := `SELECT run, capture_name, device, matched FROM match_results WHERE run = ? ORDER BY id`
	rows, err := s.db.Query(query, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		var r MatchResult
		var flag int
		if err := rows.Scan(&r.Run, &r.Capture, &r.Device, &flag); err != nil {
			return nil, err
		}
		r.Matched = flag == 1
		results = append(results, r)
	}
	return results, rows.Err()
}
