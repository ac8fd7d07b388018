package logstore

import (
	"errors"
	"sync"
	"time"
)

// ErrUninitialized is returned by every operation on a store that was
// never created. Callers must initialise first; there is no recovery path.
var ErrUninitialized = errors.New("logstore: logger is not initialized")

// Store is the ordered, append-only buffer of one session.
// A nil *Store is the uninitialised state.
type Store struct {
	mu       sync.RWMutex
	meta     Metadata
	records  []Record
	snapshot string
}

// New creates the store for a session. Initialized is stamped with the
// current time when zero and Version defaults to FormatVersion.
func New(meta Metadata) *Store {
	if meta.Initialized == 0 {
		meta.Initialized = time.Now().UnixMilli()
	}
	if meta.Version == "" {
		meta.Version = FormatVersion
	}
	return &Store{meta: meta}
}

// Append adds a record at the end of the buffer.
func (s *Store) Append(r Record) error {
	if s == nil {
		return ErrUninitialized
	}
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	return nil
}

// SetSnapshot replaces the retained snapshot. Only the latest is kept.
func (s *Store) SetSnapshot(markup string) error {
	if s == nil {
		return ErrUninitialized
	}
	s.mu.Lock()
	s.snapshot = markup
	s.mu.Unlock()
	return nil
}

// Metadata returns the values supplied at creation.
func (s *Store) Metadata() (Metadata, error) {
	if s == nil {
		return Metadata{}, ErrUninitialized
	}
	return s.meta, nil
}

// Len returns the number of records. Zero for a nil store.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Report returns a copy of the store contents. The record slice is copied;
// message values are shared with the caller of Append.
func (s *Store) Report() (Report, error) {
	if s == nil {
		return Report{}, ErrUninitialized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]Record, len(s.records))
	copy(logs, s.records)

	return Report{
		SkillInfo:   s.meta.Skill,
		BrowserInfo: s.meta.Browser,
		Version:     s.meta.Version,
		Initialized: s.meta.Initialized,
		Logs:        logs,
		Snapshot:    s.snapshot,
	}, nil
}
