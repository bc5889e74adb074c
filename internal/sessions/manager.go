package sessions

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/pkg/models"
)

// Inbound describes one incoming message used to resolve a session.
type Inbound struct {
	SenderID string
	GroupID  string
	IsGroup  bool
	Channel  string
}

// entry is the in-memory bookkeeping kept alongside a live session:
// its own mutex (for exclusive turn ownership, see package agent) and
// idle timer.
type entry struct {
	mu        sync.Mutex
	session   models.Session
	idleTimer *time.Timer
}

// Manager owns the lifecycle of in-memory sessions: creation, the
// sender/group index, idle timeout, persistence, and resume from the
// backing Store. A Manager must not be copied after first use.
type Manager struct {
	store       Store
	bus         *bus.Bus
	log         *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	byID    map[string]*entry
	byIndex map[string]string // IndexKey -> session id
}

// NewManager constructs a Manager backed by store, publishing
// lifecycle events on b. idleTimeout of zero disables automatic idle
// transitions (useful for tests and synthetic cron sessions).
func NewManager(store Store, b *bus.Bus, log *slog.Logger, idleTimeout time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:       store,
		bus:         b,
		log:         log,
		idleTimeout: idleTimeout,
		now:         time.Now,
		byID:        make(map[string]*entry),
		byIndex:     make(map[string]string),
	}
}

// Resolve returns the Session for an inbound message, creating or
// resuming it as described by the resolve operation.
func (m *Manager) Resolve(in Inbound) (models.Session, error) {
	key := indexKey(in)

	m.mu.Lock()
	if id, ok := m.byIndex[key]; ok {
		if e, ok := m.byID[id]; ok {
			e.mu.Lock()
			state := e.session.State
			e.mu.Unlock()
			m.mu.Unlock()
			if state == models.SessionIdle {
				return m.Resume(id)
			}
			return m.Activate(id)
		}
	}
	m.mu.Unlock()

	// Not in memory by index; the id might still exist durably under
	// an id we don't know without a reverse lookup, so we create a
	// fresh session. This matches the resolve contract: "Otherwise
	// create a new session."
	now := m.now()
	s := models.Session{
		ID:       uuid.NewString(),
		SenderID: in.SenderID,
		GroupID:  in.GroupID,
		Channel:  in.Channel,
		State:    models.SessionCreated,
		Messages: nil,
		Summary:  "",
		Metadata: models.SessionMetadata{
			CreatedAt:    now,
			LastActiveAt: now,
		},
	}
	if in.IsGroup && in.GroupID == "" {
		return models.Session{}, fmt.Errorf("sessions: group inbound missing groupId")
	}

	m.mu.Lock()
	e := &entry{session: s}
	m.byID[s.ID] = e
	m.byIndex[key] = s.ID
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.TopicSessionCreated, bus.SessionPayload{SessionID: s.ID})
	}
	return m.Activate(s.ID)
}

// Activate transitions a known session to active, refreshes
// last-active, and rearms its idle timer.
func (m *Manager) Activate(id string) (models.Session, error) {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return models.Session{}, ErrNotFound
	}

	e.mu.Lock()
	e.session.State = models.SessionActive
	e.session.Metadata.LastActiveAt = m.now()
	snapshot := e.session.Clone()
	e.mu.Unlock()

	m.rearmIdleTimer(id, e)
	return snapshot, nil
}

// Idle marks a session idle, persists it, and emits session.idle. It
// is idempotent: calling it twice in a row is a no-op the second
// time.
func (m *Manager) Idle(id string) error {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.session.State == models.SessionIdle {
		e.mu.Unlock()
		return nil
	}
	e.session.State = models.SessionIdle
	snapshot := e.session.Clone()
	e.mu.Unlock()

	if err := m.store.Put(snapshot); err != nil {
		return fmt.Errorf("sessions: persist on idle: %w", err)
	}
	if m.bus != nil {
		m.bus.Publish(bus.TopicSessionIdle, bus.SessionPayload{SessionID: id})
	}
	return nil
}

// Resume brings a session back into memory if needed, activates it,
// and emits session.resumed. It fails with ErrNotFound if the
// session exists in neither memory nor the store.
func (m *Manager) Resume(id string) (models.Session, error) {
	m.mu.Lock()
	_, inMemory := m.byID[id]
	m.mu.Unlock()

	if !inMemory {
		s, err := m.store.Get(id)
		if err != nil {
			return models.Session{}, err
		}
		m.mu.Lock()
		e := &entry{session: s}
		m.byID[id] = e
		m.byIndex[s.IndexKey()] = id
		m.mu.Unlock()
	}

	snapshot, err := m.Activate(id)
	if err != nil {
		return models.Session{}, err
	}
	if m.bus != nil {
		m.bus.Publish(bus.TopicSessionResumed, bus.SessionPayload{SessionID: id})
	}
	return snapshot, nil
}

// Get returns the current in-memory snapshot of a session without
// altering its lifecycle state.
func (m *Manager) Get(id string) (models.Session, error) {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return models.Session{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// WithSession runs fn with exclusive write access to the named
// session and returns whatever fn returns. fn mutates the live
// in-memory session directly; nothing reaches the store until idle or
// shutdown persistence. fn must not call Get, Put or Activate for the
// same session, since they take the lock fn already holds. This is the
// mechanism the Agent Loop uses to satisfy the "a turn holds exclusive
// write access to session.messages" ordering guarantee.
func (m *Manager) WithSession(id string, fn func(s *models.Session) error) error {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.session)
}

// Put replaces the in-memory session with a snapshot, such as a copy
// obtained from Get and then modified. It takes the session's lock, so
// it must not be called from inside WithSession's callback.
func (m *Manager) Put(id string, s models.Session) error {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
	return nil
}

// PersistAll writes every in-memory session to the store. Intended
// for use on shutdown.
func (m *Manager) PersistAll() error {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.byID))
	for _, e := range m.byID {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		e.mu.Lock()
		snapshot := e.session.Clone()
		e.mu.Unlock()
		if err := m.store.Put(snapshot); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) rearmIdleTimer(id string, e *entry) {
	if m.idleTimeout <= 0 {
		return
	}
	e.mu.Lock()
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(m.idleTimeout, func() {
		if err := m.Idle(id); err != nil {
			m.log.Error("idle timer persist failed", "session", id, "error", err)
		}
	})
	e.mu.Unlock()
}

func indexKey(in Inbound) string {
	if in.IsGroup && in.GroupID != "" {
		return "group:" + in.GroupID
	}
	return "sender:" + in.SenderID
}
