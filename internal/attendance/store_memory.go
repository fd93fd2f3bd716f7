package attendance

import (
	"context"
	"sync"
	"time"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"
)

// InMemoryStore keeps attendance records in process memory, enforcing the
// same invariants as the PostgreSQL store so unit tests exercise identical
// semantics.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.RecordID]Record)}
}

func (s *InMemoryStore) FindOpen(_ context.Context, guardID id.GuardID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.GuardID == guardID && record.Open() {
			r := record
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.RecordID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirror the partial unique index: one open record per guard.
	for _, existing := range s.records {
		if existing.GuardID == record.GuardID && existing.Open() {
			return sentinel.ErrConflict
		}
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) Close(_ context.Context, recordID id.RecordID, at time.Time, coords geofence.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !record.Open() {
		return sentinel.ErrInvalidState
	}
	record.CheckOutAt = &at
	record.CheckOutCoordinates = &coords
	s.records[recordID] = record
	return nil
}

func (s *InMemoryStore) ListFlagged(_ context.Context, day time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = day.UTC().Truncate(24 * time.Hour)
	var out []Record
	for _, record := range s.records {
		if record.Status == StatusFlagged && record.WorkDay().Equal(day) {
			out = append(out, record)
		}
	}
	return out, nil
}
