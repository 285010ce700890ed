package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore SQLite entry storage implementation
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS task_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			task TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT,
			error TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_entries_status ON task_entries(status)`,
		`CREATE INDEX IF NOT EXISTS idx_task_entries_created_at ON task_entries(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}
	return nil
}

// SaveEntry saves an entry. Result and metadata are stored as JSON.
func (s *SQLiteStore) SaveEntry(entry Entry) error {
	var result, metadata sql.NullString
	if entry.Result != nil {
		data, err := json.Marshal(entry.Result)
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to serialize metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Exec(
		"INSERT INTO task_entries (id, task, status, result, error, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Task, string(entry.Status), result, entry.Error, metadata, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// ListEntries gets the most recent entries in recording order
func (s *SQLiteStore) ListEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Query(
		`SELECT id, task, status, result, error, metadata, created_at FROM (
			SELECT seq, id, task, status, result, error, metadata, created_at
			FROM task_entries ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var status string
		var result, errMsg, metadata sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Task, &status, &result, &errMsg, &metadata, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Status = Status(status)
		entry.Error = errMsg.String
		if result.Valid {
			if err := json.Unmarshal([]byte(result.String), &entry.Result); err != nil {
				return nil, fmt.Errorf("failed to parse result of entry %s: %w", entry.ID, err)
			}
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse metadata of entry %s: %w", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Clear deletes all entries
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM task_entries"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
