// Package envelope defines the JSON frames exchanged over the chat socket.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"guild-chat/domain"
	"guild-chat/errors"
)

type Type string

const (
	TypeAuth          Type = "auth"
	TypeMessage       Type = "message"
	TypeError         Type = "error"
	TypeAuthenticated Type = "authenticated"
)

// Frame is any server to client envelope.
type Frame interface {
	FrameType() Type
}

// Inbound is a client to server envelope.
// Only the fields relevant to its Type are read.
type Inbound struct {
	Type        Type    `json:"type"`
	UserID      string  `json:"userId,omitempty"`
	Username    string  `json:"username,omitempty"`
	Token       string  `json:"token,omitempty"`
	Content     string  `json:"content,omitempty"`
	RecipientID *string `json:"recipientId,omitempty"`
	ClanID      *string `json:"clanId,omitempty"`
}

// Decode parses a text frame. A frame without a type is invalid.
func Decode(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrInvalidEnvelope, err)
	}
	if in.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", errors.ErrInvalidEnvelope)
	}
	return in, nil
}

func (in Inbound) ToCommand() domain.PostMessageCommand {
	return domain.PostMessageCommand{
		Content:     in.Content,
		RecipientID: in.RecipientID,
		ClanID:      in.ClanID,
	}
}

// Message is the canonical chat message as broadcast to peers.
type Message struct {
	Type      Type      `json:"type"`
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Message) FrameType() Type { return TypeMessage }

// FromMessage builds the broadcast envelope from a persisted message only.
func FromMessage(m domain.Message) Message {
	return Message{
		Type:      TypeMessage,
		ID:        m.ID.String(),
		SenderID:  m.SenderID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type Error struct {
	Type    Type        `json:"type"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (Error) FrameType() Type { return TypeError }

func NewError(err error) Error {
	return Error{Type: TypeError, Code: errors.ToCode(err), Message: errors.PublicMessage(err)}
}

type Authenticated struct {
	Type     Type   `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (Authenticated) FrameType() Type { return TypeAuthenticated }

func NewAuthenticated(identity domain.Identity) Authenticated {
	return Authenticated{Type: TypeAuthenticated, UserID: identity.UserID, Username: identity.Username}
}

// Received is the union of every server to client envelope, as decoded by clients.
type Received struct {
	Type      Type        `json:"type"`
	ID        string      `json:"id,omitempty"`
	SenderID  string      `json:"senderId,omitempty"`
	UserID    string      `json:"userId,omitempty"`
	Username  string      `json:"username,omitempty"`
	Content   string      `json:"content,omitempty"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
	Code      errors.Code `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func (r Received) AsMessage() Message {
	return Message{
		Type:      TypeMessage,
		ID:        r.ID,
		SenderID:  r.SenderID,
		Username:  r.Username,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}
