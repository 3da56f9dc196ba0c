// Package projection builds the local timeline of a chat client.
// Does not talk to the network nor render anything.
package projection

import (
	"sync"

	"guild-chat/domain/envelope"
)

// Listener is called for every message appended by Consume.
type Listener func(msg envelope.Message)

type Option func(*Timeline)

// WithDeduplication drops live messages whose id is already in the timeline.
// Without it a message present in the history and received again live shows twice.
func WithDeduplication() Option {
	return func(t *Timeline) {
		t.dedupe = true
	}
}

func WithListener(l Listener) Option {
	return func(t *Timeline) {
		t.listeners = append(t.listeners, l)
	}
}

// Timeline is the history baseline followed by the live messages, in arrival order.
// It never re-sorts.
type Timeline struct {
	mu        sync.RWMutex
	messages  []envelope.Message
	seen      map[string]struct{}
	dedupe    bool
	listeners []Listener
}

func NewTimeline(opts ...Option) *Timeline {
	t := &Timeline{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load replaces the content with the history snapshot, oldest first.
func (t *Timeline) Load(history []envelope.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append([]envelope.Message(nil), history...)
	t.seen = make(map[string]struct{}, len(history))
	for _, m := range history {
		t.seen[m.ID] = struct{}{}
	}
}

// Consume appends a live message and reports whether it was kept.
func (t *Timeline) Consume(msg envelope.Message) bool {
	t.mu.Lock()
	if t.dedupe {
		if _, ok := t.seen[msg.ID]; ok {
			t.mu.Unlock()
			return false
		}
	}
	t.seen[msg.ID] = struct{}{}
	t.messages = append(t.messages, msg)
	listeners := t.listeners
	t.mu.Unlock()

	for _, l := range listeners {
		l(msg)
	}
	return true
}

// Messages returns a copy of the timeline.
func (t *Timeline) Messages() []envelope.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]envelope.Message(nil), t.messages...)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
