// Package notify fans user-facing success and error messages out to
// connected consoles.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
)

// Levels of a notification.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notification is a single message shown to the administrator.
type Notification struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Kind    string    `json:"kind,omitempty"`
	Entity  string    `json:"entity,omitempty"`
	Time    time.Time `json:"time"`
}

// FromOutcome converts a lifecycle outcome into a notification.
func FromOutcome(o lifecycle.Outcome) Notification {
	level := LevelSuccess
	if o.Err != nil {
		level = LevelError
	}
	return Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: o.Message(),
		Kind:    o.Kind,
		Entity:  o.ID,
		Time:    o.Finished,
	}
}

const (
	historySize   = 50
	subscriberBuf = 16
)

// Hub keeps recent notifications and broadcasts new ones to subscribers.
type Hub struct {
	mu      sync.Mutex
	history []Notification
	subs    map[chan Notification]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Notification]struct{})}
}

// Publish records n and delivers it to every subscriber. Slow subscribers
// miss messages rather than blocking the publisher.
func (h *Hub) Publish(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, n)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Success publishes a success message.
func (h *Hub) Success(msg string) {
	h.Publish(Notification{Level: LevelSuccess, Message: msg})
}

// Error publishes an error message.
func (h *Hub) Error(msg string) {
	h.Publish(Notification{Level: LevelError, Message: msg})
}

// Outcome publishes a lifecycle outcome. It matches lifecycle.WithNotifier.
func (h *Hub) Outcome(o lifecycle.Outcome) {
	h.Publish(FromOutcome(o))
}

// Recent returns up to the last historySize notifications, oldest first.
func (h *Hub) Recent() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Notification, len(h.history))
	copy(out, h.history)
	return out
}

// Subscribe returns a channel of new notifications and a function that
// unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	_, ch, cancel := h.subscribe(false)
	return ch, cancel
}

// SubscribeWithRecent is Subscribe plus the history as of the moment of
// subscribing. Each notification appears either in the history or on the
// channel, never both.
func (h *Hub) SubscribeWithRecent() ([]Notification, <-chan Notification, func()) {
	return h.subscribe(true)
}

func (h *Hub) subscribe(withRecent bool) ([]Notification, <-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuf)
	var recent []Notification
	h.mu.Lock()
	if withRecent {
		recent = make([]Notification, len(h.history))
		copy(recent, h.history)
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return recent, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
