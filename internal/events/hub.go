// Package events is the in-process change feed. Services publish after a
// committed mutation and observers re-query what they need.
package events

import (
	"sync"
)

type Topic string

const (
	TopicStays    Topic = "stays"
	TopicFlows    Topic = "flows"
	TopicExpenses Topic = "expenses"
)

// Event names what changed. ID is the entity id when there is one.
type Event struct {
	Topic Topic
	Kind  string
	ID    string
}

type Handler func(Event)

type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic]map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Topic]map[uint64]Handler)}
}

// Subscription is released with Unsubscribe. Releasing twice is a no-op.
type Subscription struct {
	hub   *Hub
	topic Topic
	id    uint64
	once  sync.Once
}

// Subscribe registers fn for topic. fn runs on the publisher's goroutine
// and must not block.
func (h *Hub) Subscribe(topic Topic, fn Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]Handler)
	}
	h.subs[topic][h.nextID] = fn
	return &Subscription{hub: h, topic: topic, id: h.nextID}
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		delete(s.hub.subs[s.topic], s.id)
	})
}

// Publish delivers e to every current subscriber of its topic.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[e.Topic]))
	for _, fn := range h.subs[e.Topic] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}
}

// Subscribers counts the live subscriptions on topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
