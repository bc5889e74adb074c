// Package router implements the Message Router: appending inbound
// messages to sessions and emitting the typed inbound/outbound events
// that drive the rest of the gateway.
package router

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/internal/outbound"
	"github.com/mira-ai/sentinel/internal/sessions"
	"github.com/mira-ai/sentinel/pkg/models"
)

// dedupWindow is how long a second outbound emission for the same
// session is suppressed after the first.
const dedupWindow = 5 * time.Second

// sessionResolver is the subset of *sessions.Manager the router
// needs, kept narrow so tests can supply a fake.
type sessionResolver interface {
	Resolve(in sessions.Inbound) (models.Session, error)
	WithSession(id string, fn func(s *models.Session) error) error
}

// Router appends inbound user messages to sessions and applies a
// best-effort outbound deduplication window.
type Router struct {
	sessions sessionResolver
	bus      *bus.Bus
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New constructs a Router over the given Session Manager and Event
// Bus.
func New(mgr sessionResolver, b *bus.Bus) *Router {
	return &Router{
		sessions: mgr,
		bus:      b,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// HandleInbound resolves the session for in and appends a new
// user-role message carrying text, then emits message.inbound.
func (r *Router) HandleInbound(in sessions.Inbound, text string) (models.Session, error) {
	s, err := r.sessions.Resolve(in)
	if err != nil {
		return models.Session{}, err
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		Channel:   in.Channel,
		CreatedAt: r.now(),
	}

	err = r.sessions.WithSession(s.ID, func(sess *models.Session) error {
		sess.Messages = append(sess.Messages, msg)
		sess.Metadata.MessageCount = len(sess.Messages)
		sess.Metadata.LastActiveAt = msg.CreatedAt
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	if r.bus != nil {
		r.bus.Publish(bus.TopicMessageInbound, bus.MessagePayload{SessionID: s.ID, Message: msg})
	}
	return s, nil
}

// HandleOutbound emits message.outbound for sessionID, unless another
// outbound for the same session was emitted within the dedup window,
// in which case it silently drops this one and returns false. It
// never appends to session history — the Agent Loop is the sole
// author of assistant-role entries.
func (r *Router) HandleOutbound(sessionID, text string) bool {
	now := r.now()

	r.mu.Lock()
	if last, ok := r.lastSent[sessionID]; ok && now.Sub(last) < dedupWindow {
		r.mu.Unlock()
		return false
	}
	r.lastSent[sessionID] = now
	r.mu.Unlock()

	if r.bus != nil {
		messageID := uuid.NewString()
		var channel, to string
		_ = r.sessions.WithSession(sessionID, func(sess *models.Session) error {
			channel = sess.Channel
			to = sess.SenderID
			return nil
		})
		env := outbound.Build(sessionID, channel, to, "agent", messageID, text, now)

		r.bus.Publish(bus.TopicMessageOutbound, bus.MessagePayload{
			SessionID: sessionID,
			Message: models.Message{
				ID:        messageID,
				Role:      models.RoleAssistant,
				Content:   text,
				Channel:   channel,
				CreatedAt: now,
			},
			Envelope: &env,
		})
	}
	return true
}
