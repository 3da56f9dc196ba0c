package runtime

import (
	"context"
	"log/slog"
	"sync"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"

	"github.com/mama165/sdk-go/logs"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelDebug)

// recordingSink keeps every frame it was asked to deliver.
type recordingSink struct {
	mu     sync.Mutex
	frames []envelope.Frame
	closed bool
}

func (s *recordingSink) Consume(_ context.Context, frame envelope.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrConnectionClosed
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingSink) Messages() []envelope.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []envelope.Message
	for _, f := range s.frames {
		if m, ok := f.(envelope.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSink) Errors() []envelope.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []envelope.Error
	for _, f := range s.frames {
		if e, ok := f.(envelope.Error); ok {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) Frames() []envelope.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]envelope.Frame(nil), s.frames...)
}

// trustingAuthenticator accepts the identity carried by the envelope.
type trustingAuthenticator struct{}

func (trustingAuthenticator) Authenticate(in envelope.Inbound) (domain.Identity, error) {
	if in.UserID == "" || in.Username == "" {
		return domain.Identity{}, errors.ErrInvalidEnvelope
	}
	return domain.Identity{UserID: in.UserID, Username: in.Username}, nil
}

func authenticatedSession(identity domain.Identity) (*Session, *recordingSink) {
	sink := &recordingSink{}
	session := NewSession(sink)
	_ = session.Authenticate(identity)
	return session, sink
}
