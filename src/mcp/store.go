package mcp

import "sync"

// maxPreviews bounds how many previews are kept for get_preview_message.
const maxPreviews = 100

// PreviewStore keeps recent previews so their full message can be fetched
// after the manifest.
type PreviewStore interface {
	Store(p Preview)
	Get(previewID string) (Preview, bool)
}

// InMemoryStore is a thread-safe PreviewStore that forgets the oldest
// preview once full.
type InMemoryStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
	order    []string
	limit    int
}

// NewInMemoryStore creates a new in-memory preview store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		previews: make(map[string]Preview),
		limit:    maxPreviews,
	}
}

// Store saves p under its preview id.
func (s *InMemoryStore) Store(p Preview) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.Response.PreviewID
	if _, exists := s.previews[id]; !exists {
		s.order = append(s.order, id)
	}
	s.previews[id] = p

	for len(s.order) > s.limit {
		delete(s.previews, s.order[0])
		s.order = s.order[1:]
	}
}

// Get retrieves a preview by id.
func (s *InMemoryStore) Get(previewID string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.previews[previewID]
	return p, ok
}
