package events

import (
	"sync"
	"testing"
)

func TestPublishReachesTopicSubscribersOnly(t *testing.T) {
	h := NewHub()
	var stays, flows int
	h.Subscribe(TopicStays, func(Event) { stays++ })
	h.Subscribe(TopicFlows, func(Event) { flows++ })

	h.Publish(Event{Topic: TopicStays, Kind: "checkIn", ID: "s1"})
	h.Publish(Event{Topic: TopicStays, Kind: "payment", ID: "s1"})

	if stays != 2 || flows != 0 {
		t.Fatalf("stays=%d flows=%d", stays, flows)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	calls := 0
	sub := h.Subscribe(TopicExpenses, func(Event) { calls++ })
	other := h.Subscribe(TopicExpenses, func(Event) {})

	sub.Unsubscribe()
	sub.Unsubscribe()
	h.Publish(Event{Topic: TopicExpenses})

	if calls != 0 {
		t.Fatalf("handler called after unsubscribe")
	}
	if n := h.Subscribers(TopicExpenses); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	other.Unsubscribe()
	if n := h.Subscribers(TopicExpenses); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	h := NewHub()
	var sub *Subscription
	calls := 0
	sub = h.Subscribe(TopicFlows, func(Event) {
		calls++
		sub.Unsubscribe()
	})
	h.Publish(Event{Topic: TopicFlows})
	h.Publish(Event{Topic: TopicFlows})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := h.Subscribe(TopicStays, func(Event) {})
			s.Unsubscribe()
		}()
		go func() {
			defer wg.Done()
			h.Publish(Event{Topic: TopicStays})
		}()
	}
	wg.Wait()
	if n := h.Subscribers(TopicStays); n != 0 {
		t.Fatalf("leaked subscribers: %d", n)
	}
}
