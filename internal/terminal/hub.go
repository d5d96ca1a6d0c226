package terminal

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/id"
)

// TopicPrefix names a session's output channel: "terminal-output-<id>".
const TopicPrefix = "terminal-output-"

// DefaultSubscriberBuffer is the per-subscriber event backlog.
const DefaultSubscriberBuffer = 256

// EventType distinguishes output fragments from end-of-session notices.
type EventType string

const (
	EventOutput EventType = "output"
	EventExit   EventType = "exit"
)

// Event is one item on a session's output stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Data      string    `json:"data,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Topic returns the channel name for a session.
func Topic(sessionID string) string {
	return TopicPrefix + sessionID
}

// Hub fans session events out to subscribers keyed by session ID.
//
// Subscriptions may be taken before or after the session is spawned. There is
// no replay: events published while nobody is subscribed are dropped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[id.SubscriberID]*Subscription
	buffer int
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]map[id.SubscriberID]*Subscription),
		buffer: buffer,
	}
}

// Subscribe attaches a new subscriber to sessionID.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		ID:        id.NewSubscriberID(),
		SessionID: sessionID,
		events:    make(chan Event, h.buffer),
		done:      make(chan struct{}),
		hub:       h,
	}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[id.SubscriberID]*Subscription)
		h.subs[sessionID] = set
	}
	set[sub.ID] = sub
	h.mu.Unlock()

	return sub
}

// Publish delivers ev to every subscriber of ev.SessionID.
//
// Delivery blocks while a subscriber's buffer is full, which keeps each
// subscriber's view in read order. A closed subscription never blocks.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	h.mu.RLock()
	set := h.subs[ev.SessionID]
	targets := make([]*Subscription, 0, len(set))
	for _, sub := range set {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.events <- ev:
		case <-sub.done:
		}
	}
}

// Subscribers returns the number of subscribers for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.SessionID]
	if !ok {
		return
	}
	delete(set, sub.ID)
	if len(set) == 0 {
		delete(h.subs, sub.SessionID)
	}
}

// Subscription is one consumer of a session's output stream.
//
// The events channel is never closed; select on Done to detect Close.
type Subscription struct {
	ID        id.SubscriberID
	SessionID string

	events chan Event
	done   chan struct{}
	once   sync.Once
	hub    *Hub
}

// Events returns the receive side of the subscription.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscriber and unblocks any pending publish.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}
