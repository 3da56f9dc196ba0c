package runtime

import (
	"context"
	"log/slog"
	"sync"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/observability"
)

// Registry tracks the open connections of one server and fans messages out to them.
// Every server owns its own Registry; there is no package level state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // session id -> session
	log      *slog.Logger
	metrics  *observability.Metrics
}

func NewRegistry(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log,
		metrics:  metrics,
	}
}

// Register adds a freshly opened, still pending, connection.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	r.refreshGauges()
}

// Remove closes the session and forgets it.
// Removing an unknown or already removed session is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s.ID()]
	delete(r.sessions, s.ID())
	r.mu.Unlock()

	s.Close()
	if ok {
		r.refreshGauges()
	}
}

// Broadcast delivers msg to every authenticated connection and returns how many received it.
// Pending and closed connections never receive broadcasts.
// A connection that fails delivery is removed; the others are still served.
func (r *Registry) Broadcast(ctx context.Context, msg envelope.Message) int {
	targets := r.authenticatedSessions()

	delivered, failed := 0, 0
	for _, s := range targets {
		if err := s.Send(ctx, msg); err != nil {
			failed++
			r.log.Warn("Delivery failed, dropping connection",
				"session_id", s.ID(),
				"message_id", msg.ID,
				"error", err)
			r.Remove(s)
			continue
		}
		delivered++
	}
	r.metrics.Delivered(delivered, failed)
	return delivered
}

// Len returns the number of registered connections, whatever their state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Authenticated returns the number of connections that completed the handshake.
func (r *Registry) Authenticated() int {
	return len(r.authenticatedSessions())
}

// Refresh re-reads session states into the connection gauges, after a handshake for instance.
func (r *Registry) Refresh() {
	r.refreshGauges()
}

// Shutdown closes every connection, used when the server stops.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	r.refreshGauges()
}

func (r *Registry) authenticatedSessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.State() == domain.Authenticated {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) refreshGauges() {
	if r.metrics == nil {
		return
	}
	r.mu.RLock()
	pending, authenticated := 0, 0
	for _, s := range r.sessions {
		switch s.State() {
		case domain.Pending:
			pending++
		case domain.Authenticated:
			authenticated++
		}
	}
	r.mu.RUnlock()
	r.metrics.SetConnections(pending, authenticated)
}
