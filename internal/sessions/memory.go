package sessions

import (
	"sync"

	"github.com/mira-ai/sentinel/pkg/models"
)

// maxMessagesPerSession caps the in-memory history retained per
// session before the oldest entries are dropped, independent of the
// Memory Controller's own compression trigger.
const maxMessagesPerSession = 1000

// MemoryStore is an in-process, map-backed Store. It is safe for
// concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

func (m *MemoryStore) Get(id string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(s models.Session) error {
	clone := s.Clone()
	if excess := len(clone.Messages) - maxMessagesPerSession; excess > 0 {
		clone.Messages = clone.Messages[excess:]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(opts ListOptions) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Session
	for _, s := range m.sessions {
		if opts.Channel != "" && s.Channel != opts.Channel {
			continue
		}
		out = append(out, s.Clone())
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}
