// Package store persists accepted telemetry events as a single bounded
// JSON document on local disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// DefaultMaxEntries is the store cap; the oldest entries are evicted
// first when an append exceeds it.
const DefaultMaxEntries = 10000

// DocumentVersion is the persisted schema version.
const DocumentVersion = "1.0.0"

var ErrCorruptStore = errors.New("event store file is corrupt")

// Document is the on-disk shape of the store.
type Document struct {
	Version   string            `json:"version"`
	UpdatedAt string            `json:"updated_at"`
	Events    []telemetry.Event `json:"events"`
}

// EventStore is the persistence boundary for the ingestion pipeline.
// Implementations must serialize mutations so concurrent ingestion
// requests cannot lose updates.
type EventStore interface {
	// Append adds events, evicting from the oldest end past the cap,
	// and returns the resulting store size.
	Append(events []telemetry.Event) (int, error)
	// Replace discards the existing contents in favor of events and
	// returns the resulting store size.
	Replace(events []telemetry.Event) (int, error)
	// Snapshot returns a copy of the persisted document.
	Snapshot() (*Document, error)
	// Size returns the number of stored events.
	Size() (int, error)
}

// FileStore is an EventStore backed by one JSON file. All mutations run
// under a single mutex and rewrite the file through a temp-file rename,
// so the on-disk document is never observed half-written.
type FileStore struct {
	mu         sync.Mutex
	path       string
	maxEntries int
	clock      func() time.Time

	loaded    bool
	events    []telemetry.Event
	updatedAt string
}

// NewFileStore creates a store persisted at path with the default cap.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:       path,
		maxEntries: DefaultMaxEntries,
		clock:      time.Now,
	}
}

// WithMaxEntries overrides the entry cap (tests).
func (s *FileStore) WithMaxEntries(n int) *FileStore {
	s.maxEntries = n
	return s
}

// WithClock overrides the clock used for updated_at (tests).
func (s *FileStore) WithClock(clock func() time.Time) *FileStore {
	s.clock = clock
	return s
}

func (s *FileStore) Append(events []telemetry.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return 0, err
	}

	merged := append(s.events, events...)
	if len(merged) > s.maxEntries {
		merged = merged[len(merged)-s.maxEntries:]
	}

	if err := s.writeLocked(merged); err != nil {
		return 0, err
	}
	return len(s.events), nil
}

func (s *FileStore) Replace(events []telemetry.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := events
	if len(next) > s.maxEntries {
		next = next[len(next)-s.maxEntries:]
	}

	if err := s.writeLocked(next); err != nil {
		return 0, err
	}
	return len(s.events), nil
}

func (s *FileStore) Snapshot() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	doc := &Document{
		Version:   DocumentVersion,
		UpdatedAt: s.updatedAt,
		Events:    make([]telemetry.Event, len(s.events)),
	}
	copy(doc.Events, s.events)
	return doc, nil
}

func (s *FileStore) Size() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return 0, err
	}
	return len(s.events), nil
}

// loadLocked reads the persisted document on first use. A missing file
// is an empty store; a file that exists but does not parse is an error,
// never a silent reset.
func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.events = nil
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read event store: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}

	s.events = doc.Events
	s.updatedAt = doc.UpdatedAt
	s.loaded = true
	return nil
}

func (s *FileStore) writeLocked(events []telemetry.Event) error {
	doc := Document{
		Version:   DocumentVersion,
		UpdatedAt: s.clock().UTC().Format(time.RFC3339Nano),
		Events:    events,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode event store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".events-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write event store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace event store: %w", err)
	}

	s.events = events
	s.updatedAt = doc.UpdatedAt
	s.loaded = true
	return nil
}
