package router

import (
	"testing"
	"time"

	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/internal/sessions"
)

func TestHandleInboundAppendsMessageAndEmits(t *testing.T) {
	b := bus.New(nil)
	mgr := sessions.NewManager(sessions.NewMemoryStore(), b, nil, 0)
	r := New(mgr, b)

	var gotTopic string
	b.Subscribe(bus.TopicMessageInbound, func(payload any) {
		gotTopic = bus.TopicMessageInbound
	})

	s, err := r.HandleInbound(sessions.Inbound{SenderID: "u1", Channel: "cli"}, "hello")
	if err != nil {
		t.Fatalf("handle inbound: %v", err)
	}

	got, err := mgr.Get(s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("expected one message 'hello', got %+v", got.Messages)
	}
	if gotTopic != bus.TopicMessageInbound {
		t.Fatalf("expected message.inbound to be published")
	}
}

func TestHandleOutboundDedup(t *testing.T) {
	r := New(sessions.NewManager(sessions.NewMemoryStore(), nil, nil, 0), bus.New(nil))

	fakeNow := time.Now()
	r.now = func() time.Time { return fakeNow }

	if ok := r.HandleOutbound("s1", "first"); !ok {
		t.Fatalf("expected first outbound to succeed")
	}
	if ok := r.HandleOutbound("s1", "second"); ok {
		t.Fatalf("expected second outbound within window to be dropped")
	}

	fakeNow = fakeNow.Add(6 * time.Second)
	if ok := r.HandleOutbound("s1", "third"); !ok {
		t.Fatalf("expected outbound after window to succeed")
	}
}

func TestHandleOutboundPublishesEnvelope(t *testing.T) {
	b := bus.New(nil)
	mgr := sessions.NewManager(sessions.NewMemoryStore(), b, nil, 0)
	r := New(mgr, b)

	s, err := r.HandleInbound(sessions.Inbound{SenderID: "u1", Channel: "cli"}, "hi")
	if err != nil {
		t.Fatalf("handle inbound: %v", err)
	}

	var payload bus.MessagePayload
	b.Subscribe(bus.TopicMessageOutbound, func(p any) {
		payload = p.(bus.MessagePayload)
	})

	if ok := r.HandleOutbound(s.ID, "reply"); !ok {
		t.Fatalf("expected outbound to succeed")
	}
	if payload.Envelope == nil {
		t.Fatalf("expected envelope to be populated")
	}
	if payload.Envelope.Delivery.Channel != "cli" || payload.Envelope.Delivery.To != "u1" {
		t.Fatalf("unexpected envelope delivery: %+v", payload.Envelope.Delivery)
	}
	if len(payload.Envelope.Payloads) != 1 || payload.Envelope.Payloads[0].Text != "reply" {
		t.Fatalf("unexpected envelope payloads: %+v", payload.Envelope.Payloads)
	}
}
