package observability

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a single ledger change.
type Event struct {
	ID      string         `json:"id" yaml:"id"`
	Time    time.Time      `json:"time" yaml:"time"`
	Level   string         `json:"level" yaml:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type" yaml:"type"`   // e.g. "task.created", "task.status_changed"
	Message string         `json:"msg" yaml:"msg"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since  *time.Time
	Until  *time.Time
	Type   string
	Level  string
	TaskID string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	// LogEvent stamps an id, time and message onto a new event and writes it.
	LogEvent(eventType string, data map[string]any) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
	now  func() time.Time
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given
// path, creating parent directories as needed.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{
		path: path,
		file: f,
		now:  time.Now,
	}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
// Events without an id get a fresh UUID.
func (l *jsonlEventLog) Write(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func (l *jsonlEventLog) LogEvent(eventType string, data map[string]any) error {
	return l.Write(Event{
		ID:      uuid.NewString(),
		Time:    l.now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: describe(eventType, data),
		Data:    data,
	})
}

// describe builds a one-line message for known event types.
func describe(eventType string, data map[string]any) string {
	id, _ := data["task_id"].(string)
	switch eventType {
	case "task.created":
		return fmt.Sprintf("%s created", id)
	case "task.status_changed":
		return fmt.Sprintf("%s moved from %v to %v", id, data["from"], data["to"])
	case "task.updated":
		if fields, ok := data["fields"].([]string); ok && len(fields) > 0 {
			return fmt.Sprintf("%s updated: %s", id, strings.Join(fields, ", "))
		}
		return fmt.Sprintf("%s updated", id)
	default:
		return eventType
	}
}

// Read opens the log file for reading, scans line by line, decodes each event,
// and returns those matching the given filter.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	events := []Event{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip malformed lines
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	return events, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// matchesEventFilter checks whether an event satisfies all filter criteria.
func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	if filter.TaskID != "" {
		if id, _ := event.Data["task_id"].(string); id != filter.TaskID {
			return false
		}
	}
	return true
}
