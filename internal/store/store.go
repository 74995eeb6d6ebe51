// Package store holds the committed sensor snapshot and its on-disk dumps.
package store

import (
	"sync/atomic"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// state is one committed value. It is never modified after Write.
type state struct {
	snapshot domain.Snapshot
	raw      []domain.RawRecord
}

// Store is the single-writer, many-reader holder of the current snapshot.
// Readers never block and always see a whole snapshot.
type Store struct {
	current atomic.Pointer[state]
	empty   domain.Snapshot
}

// New returns an empty Store whose Read serves the empty snapshot of t.
func New(t *domain.Taxonomy) *Store {
	return &Store{empty: domain.EmptySnapshot(t)}
}

// Write replaces the current snapshot. raw may be nil when the snapshot was
// recovered from a persisted form without its source rows.
func (s *Store) Write(snap domain.Snapshot, raw []domain.RawRecord) {
	s.current.Store(&state{snapshot: snap, raw: raw})
}

// Read returns the current snapshot and whether one was ever committed.
// Before the first commit it returns the empty snapshot.
func (s *Store) Read() (domain.Snapshot, bool) {
	st := s.current.Load()
	if st == nil {
		return s.empty, false
	}
	return st.snapshot, true
}

// Raw returns the source rows of the current snapshot.
func (s *Store) Raw() ([]domain.RawRecord, bool) {
	st := s.current.Load()
	if st == nil || st.raw == nil {
		return nil, false
	}
	return st.raw, true
}

// HasSnapshot reports whether a snapshot was ever committed.
func (s *Store) HasSnapshot() bool {
	return s.current.Load() != nil
}
