package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// appendLine opens path in append mode, writes line and closes it again so
// external log rotation never leaves us writing to a deleted file.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DaemonLog is slowkicker's own log: one "<timestamp> <message>" line per entry
type DaemonLog struct {
	path    string
	verbose bool
	now     func() time.Time
	mu      sync.Mutex
}

// NewDaemonLog creates a daemon log writing to path. With verbose set every
// entry is mirrored on stderr.
func NewDaemonLog(path string, verbose bool) *DaemonLog {
	return &DaemonLog{path: path, verbose: verbose, now: time.Now}
}

// Printf appends a formatted entry
func (l *DaemonLog) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.verbose {
		log.Printf("[slowkicker] %s", msg)
	}
	if err := appendLine(l.path, FormatTimestamp(l.now())+" "+msg); err != nil && l.verbose {
		log.Printf("[slowkicker] failed to write daemon log: %v", err)
	}
}

// ServerLog appends kick records to glftpd.log where site bots pick them up
type ServerLog struct {
	path     string
	detailed bool
	mu       sync.Mutex
}

// NewServerLog creates a server log writer. detailed selects the
// SLOW/ZEROBYTE/STALLED line formats instead of the single SLOWKICK one.
func NewServerLog(path string, detailed bool) *ServerLog {
	return &ServerLog{path: path, detailed: detailed}
}

// WriteKick appends the line for event
func (s *ServerLog) WriteKick(event KickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := FormatServerLine(event, s.detailed)
	if err := appendLine(s.path, line); err != nil {
		return fmt.Errorf("failed to write server log: %w", err)
	}
	return nil
}

// Journal manages persistent JSON Lines logging of kick events
type Journal struct {
	file *os.File
	mu   sync.Mutex
}

// NewJournal creates a new kick journal
func NewJournal(path string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Open log file in append mode
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Journal{
		file: file,
	}, nil
}

// WriteKick writes a kick event to the journal
func (j *Journal) WriteKick(event KickEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal kick: %w", err)
	}

	// Write as JSON Lines format (one JSON object per line)
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write kick: %w", err)
	}

	return j.file.Sync()
}

// Close closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}

	return nil
}

// ReadJournal reads and parses a kick journal file
func ReadJournal(path string) ([]KickEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var events []KickEvent
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var event KickEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			// Skip invalid lines
			continue
		}

		events = append(events, event)
	}

	return events, nil
}
