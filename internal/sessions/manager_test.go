package sessions

import (
	"testing"
	"time"

	"github.com/mira-ai/sentinel/pkg/models"
)

func TestResolveCreatesThenReusesBySender(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), nil, nil, 0)

	s1, err := mgr.Resolve(Inbound{SenderID: "u1", Channel: "cli"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s1.State != models.SessionActive {
		t.Fatalf("expected active state, got %s", s1.State)
	}

	s2, err := mgr.Resolve(Inbound{SenderID: "u1", Channel: "cli"})
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if s2.ID != s1.ID {
		t.Fatalf("expected same session id on re-resolve, got %s vs %s", s2.ID, s1.ID)
	}
}

func TestIdleThenResume(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store, nil, nil, 0)

	s, err := mgr.Resolve(Inbound{SenderID: "u2", Channel: "cli"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := mgr.Idle(s.ID); err != nil {
		t.Fatalf("idle: %v", err)
	}
	if err := mgr.Idle(s.ID); err != nil {
		t.Fatalf("idle idempotent: %v", err)
	}

	persisted, err := store.Get(s.ID)
	if err != nil {
		t.Fatalf("expected session persisted on idle: %v", err)
	}
	if persisted.State != models.SessionIdle {
		t.Fatalf("expected persisted state idle, got %s", persisted.State)
	}

	resumed, err := mgr.Resume(s.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.State != models.SessionActive {
		t.Fatalf("expected active after resume, got %s", resumed.State)
	}
}

func TestResumeNotFound(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), nil, nil, 0)
	if _, err := mgr.Resume("does-not-exist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithSessionExclusiveWrite(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), nil, nil, 0)
	s, _ := mgr.Resolve(Inbound{SenderID: "u3", Channel: "cli"})

	err := mgr.WithSession(s.ID, func(sess *models.Session) error {
		sess.Messages = append(sess.Messages, models.Message{
			ID: "m1", Role: models.RoleUser, Content: "hi", CreatedAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		t.Fatalf("with session: %v", err)
	}

	got, _ := mgr.Get(s.ID)
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
}

func TestPersistAll(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store, nil, nil, 0)
	s, _ := mgr.Resolve(Inbound{SenderID: "u4", Channel: "cli"})

	if err := mgr.PersistAll(); err != nil {
		t.Fatalf("persist all: %v", err)
	}
	if _, err := store.Get(s.ID); err != nil {
		t.Fatalf("expected session persisted: %v", err)
	}
}
