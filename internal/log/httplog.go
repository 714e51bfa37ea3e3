package log

import (
	"fmt"
	"sync"
	"time"
)

// HTTP log buffer is separate from the main log
var httpLogBuffer *LogBuffer
var httpLogBufferOnce sync.Once

// LogEntry is one buffered log line
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogBuffer keeps the most recent entries in a fixed-size ring
type LogBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewLogBuffer creates a ring buffer holding up to size entries
func NewLogBuffer(size int) *LogBuffer {
	if size < 1 {
		size = 1
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// AddEntry appends an entry, overwriting the oldest one when full
func (b *LogBuffer) AddEntry(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]LogEntry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]LogEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}

// GetHTTPLogBuffer returns the HTTP log buffer instance, creating it if necessary
func GetHTTPLogBuffer() *LogBuffer {
	httpLogBufferOnce.Do(func() {
		httpLogBuffer = NewLogBuffer(1000) // Keep last 1000 HTTP log entries
	})
	return httpLogBuffer
}

// LogHTTPRequest logs an HTTP request to the separate HTTP log buffer
func LogHTTPRequest(method, path string, status int, duration time.Duration, size int, remoteAddr, userAgent string, err error) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   fmt.Sprintf("%s %s %d %v %d bytes", method, path, status, duration, size),
		Fields: map[string]any{
			"method":      method,
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"size":        size,
			"remote_addr": remoteAddr,
			"user_agent":  userAgent,
		},
	}

	if err != nil {
		entry.Level = "error"
		entry.Fields["error"] = err.Error()
	}

	GetHTTPLogBuffer().AddEntry(entry)
}
