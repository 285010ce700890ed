package memory

import (
	"time"
)

// Status task execution status
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry a single task execution record
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Task      string         `json:"task"`
	Status    Status         `json:"status"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Store persistent entry storage
type Store interface {
	SaveEntry(entry Entry) error
	// ListEntries returns the most recent entries in recording order.
	// A non-positive limit returns all of them.
	ListEntries(limit int) ([]Entry, error)
	Clear() error
	Close() error
}
