package runtime

import (
	"context"
	"sync"

	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"

	"github.com/google/uuid"
)

// Session is the handshake state machine of one connection.
//
//	pending --auth--> authenticated --close--> closed
//	pending --close--> closed
//
// The identity is bound once and never changes afterwards.
// Session is safe for concurrent use: the read loop mutates it while
// broadcasts from other connections read it.
type Session struct {
	id   string
	sink contract.EventSink

	mu       sync.RWMutex
	state    domain.SessionState
	identity domain.Identity
}

// NewSession creates a pending session delivering through sink.
func NewSession(sink contract.EventSink) *Session {
	return &Session{id: uuid.NewString(), sink: sink, state: domain.Pending}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the bound identity, ok is false until authenticated.
func (s *Session) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == domain.Authenticated
}

// Authenticate binds identity. Re-authentication is rejected and keeps the first identity.
func (s *Session) Authenticate(identity domain.Identity) error {
	return s.AuthenticateAndAck(context.Background(), identity, nil)
}

// AuthenticateAndAck queues ack on the sink while holding the session lock,
// then binds identity. Broadcasts only target authenticated sessions, so
// every one of them lands behind the ack.
// The session stays pending when the ack cannot be queued.
func (s *Session) AuthenticateAndAck(ctx context.Context, identity domain.Identity, ack envelope.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.Authenticated:
		return errors.ErrAlreadyAuthenticated
	case domain.Closed:
		return errors.ErrConnectionClosed
	}
	if ack != nil {
		if err := s.sink.Consume(ctx, ack); err != nil {
			return err
		}
	}
	s.identity = identity
	s.state = domain.Authenticated
	return nil
}

// Close moves the session to closed and releases its sink.
// It returns false when the session was already closed.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.state == domain.Closed {
		s.mu.Unlock()
		return false
	}
	s.state = domain.Closed
	s.mu.Unlock()
	_ = s.sink.Close()
	return true
}

// Send delivers a frame to this connection only.
func (s *Session) Send(ctx context.Context, frame envelope.Frame) error {
	if s.State() == domain.Closed {
		return errors.ErrConnectionClosed
	}
	return s.sink.Consume(ctx, frame)
}
