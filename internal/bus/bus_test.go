package bus

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPublishInvokesAllHandlersInOrder(t *testing.T) {
	b := New(nil)
	var order []int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe("topic.a", func(payload any) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	b.Publish("topic.a", nil)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("expected 5 invocations, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected registration order %v, got %v", []int{0, 1, 2, 3, 4}, order)
		}
	}
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	b := New(nil)
	var calls int32
	sub := b.Subscribe("topic.b", func(payload any) {
		atomic.AddInt32(&calls, 1)
	})
	b.Unsubscribe(sub)
	b.Publish("topic.b", nil)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected handler not to run after unsubscribe")
	}
}

func TestHandlerPanicDoesNotAbortSiblings(t *testing.T) {
	b := New(nil)
	var ran int32
	b.Subscribe("topic.c", func(payload any) { panic("boom") })
	b.Subscribe("topic.c", func(payload any) { atomic.AddInt32(&ran, 1) })
	b.Publish("topic.c", nil)
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected sibling handler to run despite panic")
	}
}

func TestListenerCount(t *testing.T) {
	b := New(nil)
	if b.ListenerCount("topic.d") != 0 {
		t.Fatalf("expected zero listeners initially")
	}
	var subs []Subscription
	const n = 64
	for i := 0; i < n; i++ {
		subs = append(subs, b.Subscribe("topic.d", func(payload any) {}))
	}
	if got := b.ListenerCount("topic.d"); got != n {
		t.Fatalf("expected %d listeners, got %d", n, got)
	}
	for _, s := range subs {
		b.Unsubscribe(s)
	}
	if b.ListenerCount("topic.d") != 0 {
		t.Fatalf("expected zero listeners after unsubscribing all")
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	b := New(nil)
	var wg sync.WaitGroup
	var total int64

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Subscribe("topic.e", func(payload any) {
				atomic.AddInt64(&total, 1)
			})
		}()
	}
	wg.Wait()

	b.Publish("topic.e", nil)
	if atomic.LoadInt64(&total) != 50 {
		t.Fatalf("expected 50 handler invocations, got %d", total)
	}
}
