// Package jsonl provides an append-only JSONL ledger with size-based
// rotation.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
)

// Ensure Ledger implements the interfaces.
var (
	_ driven.Ledger       = (*Ledger)(nil)
	_ driven.LedgerReader = (*Ledger)(nil)
)

// DefaultRotateMB is the rotation threshold in megabytes.
const DefaultRotateMB = 10

const bytesInMB = 1024 * 1024

// Config holds configuration for the JSONL ledger.
type Config struct {
	// Path is the ledger file location (required).
	Path string

	// RotateMB is the rotation threshold in megabytes (default: 10,
	// non-positive disables rotation).
	RotateMB int
}

// Ledger appends one JSON object per line to a file. When the file
// reaches the size threshold it is renamed aside before the next
// append, so a single event never splits across files.
type Ledger struct {
	mu       sync.Mutex
	path     string
	rotateMB int
}

// New creates a JSONL ledger at the configured path. The parent
// directory is created if needed.
func New(cfg Config) (*Ledger, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("jsonl: path is required")
	}
	if cfg.RotateMB == 0 {
		cfg.RotateMB = DefaultRotateMB
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonl: create directory: %w", err)
	}

	return &Ledger{
		path:     cfg.Path,
		rotateMB: cfg.RotateMB,
	}, nil
}

// AppendIngest records a completed ingestion.
func (l *Ledger) AppendIngest(event domain.IngestEvent) error {
	return l.append(event)
}

// AppendQuery records a completed query.
func (l *Ledger) AppendQuery(event domain.QueryEvent) error {
	return l.append(event)
}

// Entries returns every parsed entry from the active ledger file.
func (l *Ledger) Entries() ([]map[string]any, error) {
	lines, err := l.Lines()
	if err != nil {
		return nil, err
	}

	var entries []map[string]any
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("jsonl: parse ledger line: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Lines returns the raw ledger lines in append order.
func (l *Ledger) Lines() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("jsonl: open ledger: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: read ledger: %w", err)
	}
	return lines, nil
}

// Path returns the active ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases resources. The file is only held open during appends.
func (l *Ledger) Close() error {
	return nil
}

func (l *Ledger) append(event any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotate(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("jsonl: encode event: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl: open ledger: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonl: write event: %w", err)
	}
	return nil
}

// rotate renames the ledger aside when it has reached the threshold.
// Rotated files are named ledger.r1.jsonl, ledger.r2.jsonl and so on;
// the first free index is used.
func (l *Ledger) rotate() error {
	if l.rotateMB <= 0 {
		return nil
	}

	info, err := os.Stat(l.path)
	if err != nil {
		return nil
	}
	if info.Size() < int64(l.rotateMB)*bytesInMB {
		return nil
	}

	ext := filepath.Ext(l.path)
	stem := strings.TrimSuffix(l.path, ext)
	for index := 1; ; index++ {
		rotated := fmt.Sprintf("%s.r%d%s", stem, index, ext)
		if _, err := os.Stat(rotated); os.IsNotExist(err) {
			if err := os.Rename(l.path, rotated); err != nil {
				return fmt.Errorf("jsonl: rotate ledger: %w", err)
			}
			return nil
		}
	}
}
