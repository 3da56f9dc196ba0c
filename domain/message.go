// Package domain contains core concepts of the chat system.
// This file defines chat messages and the drafts they are persisted from.
// Messages are immutable once the store has produced them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the canonical, persisted form of a chat message.
// ID and CreatedAt are only ever produced by a message store.
type Message struct {
	ID          uuid.UUID
	SenderID    string
	Username    string
	Content     string
	RecipientID *string
	ClanID      *string
	CreatedAt   time.Time
}

// Draft is what a sender submits for persistence.
// It has no identifier nor timestamp: the store assigns both.
type Draft struct {
	SenderID    string
	Username    string
	Content     string
	RecipientID *string
	ClanID      *string
}
