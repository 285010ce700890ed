package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hession/taskmate/internal/logger"
)

// Summary counts of entries per status
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Started   int `json:"started"`
}

// Log append-only task execution history.
// When a Store is attached every recorded entry is also persisted.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	store   Store
}

// NewLog creates a log. store may be nil for an in-memory log.
func NewLog(store Store) *Log {
	return &Log{store: store}
}

// Record appends a new entry and returns it
func (l *Log) Record(task string, status Status, result any, errMsg string, metadata map[string]any) Entry {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Task:      task,
		Status:    status,
		Result:    result,
		Error:     errMsg,
		Metadata:  metadata,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	store := l.store
	l.mu.Unlock()

	if store != nil {
		if err := store.SaveEntry(entry); err != nil {
			// The in-memory history stays authoritative
			logger.Warn("Failed to persist memory entry %s: %v", entry.ID, err)
		}
	}

	return entry
}

// All returns a copy of every entry in recording order
func (l *Log) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// FilterByStatus returns entries with the given status
func (l *Log) FilterByStatus(status Status) []Entry {
	return l.filter(func(e Entry) bool { return e.Status == status })
}

// FilterByTask returns entries whose task contains pattern, case-insensitively
func (l *Log) FilterByTask(pattern string) []Entry {
	pattern = strings.ToLower(pattern)
	return l.filter(func(e Entry) bool {
		return strings.Contains(strings.ToLower(e.Task), pattern)
	})
}

func (l *Log) filter(keep func(Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the last n entries, oldest first
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Summary counts entries per status
func (l *Log) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{Total: len(l.entries)}
	for _, e := range l.entries {
		switch e.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusStarted:
			s.Started++
		}
	}
	return s
}

// Clear removes all entries, including persisted ones
func (l *Log) Clear() error {
	l.mu.Lock()
	l.entries = nil
	store := l.store
	l.mu.Unlock()

	if store != nil {
		return store.Clear()
	}
	return nil
}

// Load replaces the in-memory entries with the last limit persisted ones.
// It returns the number of entries loaded.
func (l *Log) Load(limit int) (int, error) {
	if l.store == nil {
		return 0, fmt.Errorf("memory log has no store")
	}

	entries, err := l.store.ListEntries(limit)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	return len(entries), nil
}

// ExportJSON writes all entries to path as an indented JSON array
func (l *Log) ExportJSON(path string) error {
	entries := l.All()
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize memory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory export: %w", err)
	}
	return nil
}

// ImportJSON replaces the in-memory entries with those read from path.
// Imported entries are not persisted.
func (l *Log) ImportJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read memory export: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse memory export: %w", err)
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}
