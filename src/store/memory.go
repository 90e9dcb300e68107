package store

import (
	"context"
	"sort"
	"sync"

	"buildmail-agent/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing, previews and single-shot CLI runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[int]contracts.NotificationRecord // project -> number -> record
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[int]contracts.NotificationRecord),
	}
}

// SaveRecord stores a copy of rec.
func (s *MemoryStore) SaveRecord(ctx context.Context, rec *contracts.NotificationRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	builds, ok := s.records[rec.Project]
	if !ok {
		builds = make(map[int]contracts.NotificationRecord)
		s.records[rec.Project] = builds
	}
	if _, exists := builds[rec.Number]; exists {
		return ErrExists{Project: rec.Project, Number: rec.Number}
	}

	stored := *rec
	stored.Recipients = append([]string(nil), rec.Recipients...)
	builds[rec.Number] = stored
	return nil
}

// GetRecord returns a copy of the record for a build.
func (s *MemoryStore) GetRecord(ctx context.Context, project string, number int) (*contracts.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[project][number]
	if !ok {
		return nil, ErrNotFound{Project: project, Number: number}
	}
	rec.Recipients = append([]string(nil), rec.Recipients...)
	return &rec, nil
}

// ListRecords returns a project's records ordered by build number.
func (s *MemoryStore) ListRecords(ctx context.Context, project string) ([]contracts.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	builds := s.records[project]
	result := make([]contracts.NotificationRecord, 0, len(builds))
	for _, rec := range builds {
		rec.Recipients = append([]string(nil), rec.Recipients...)
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
