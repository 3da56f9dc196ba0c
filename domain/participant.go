// Package domain contains core concepts of the chat system.
// This file defines the identity bound to a connection and its lifecycle states.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID   string
	Username string
}

// SessionState is the handshake state of a single connection.
type SessionState int

const (
	Pending SessionState = iota
	Authenticated
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
