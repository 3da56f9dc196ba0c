package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"guild-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessagePrefix starts every message key.
const MessagePrefix = "msg:"

// MessageRepository keeps the chat history in BadgerDB.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

type diskMessage struct {
	ID          uuid.UUID `json:"id"`
	SenderID    string    `json:"sender_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	RecipientID *string   `json:"recipient_id,omitempty"`
	ClanID      *string   `json:"clan_id,omitempty"`
	CreatedAt   int64     `json:"created_at"`
}

// Save assigns the identifier and the timestamp, then persists the message.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" so that:
//  1. Keys sort chronologically thanks to the 19-digit zero padding.
//  2. Two messages written in the same nanosecond never collide.
func (m *MessageRepository) Save(_ context.Context, draft domain.Draft) (domain.Message, error) {
	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    draft.SenderID,
		Username:    draft.Username,
		Content:     draft.Content,
		RecipientID: draft.RecipientID,
		ClanID:      draft.ClanID,
		CreatedAt:   m.now().UTC(),
	}

	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}
	key := fmt.Sprintf("%s%019d:%s", MessagePrefix, msg.CreatedAt.UnixNano(), msg.ID)
	if err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	}); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// History walks the keys backwards from the newest one and returns
// the last limit messages, oldest first.
func (m *MessageRepository) History(_ context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}

	var stored []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(MessagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Highest possible timestamp, then walk back
		for it.Seek(append(prefix, []byte("9999999999999999999;")...)); it.ValidForPrefix(prefix); it.Next() {
			if len(stored) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			var dm diskMessage
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			}); err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := lo.Map(stored, func(dm diskMessage, _ int) domain.Message {
		return dm.toMessage()
	})
	slices.Reverse(messages)
	return messages, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		Username:    msg.Username,
		Content:     msg.Content,
		RecipientID: msg.RecipientID,
		ClanID:      msg.ClanID,
		CreatedAt:   msg.CreatedAt.UnixNano(),
	}
}

func (dm diskMessage) toMessage() domain.Message {
	return domain.Message{
		ID:          dm.ID,
		SenderID:    dm.SenderID,
		Username:    dm.Username,
		Content:     dm.Content,
		RecipientID: dm.RecipientID,
		ClanID:      dm.ClanID,
		CreatedAt:   time.Unix(0, dm.CreatedAt).UTC(),
	}
}

// DecodeMessage reads a value written by Save.
func DecodeMessage(value []byte) (domain.Message, error) {
	var dm diskMessage
	if err := json.Unmarshal(value, &dm); err != nil {
		return domain.Message{}, err
	}
	return dm.toMessage(), nil
}
