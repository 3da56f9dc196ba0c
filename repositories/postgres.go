package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"guild-chat/domain"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id           UUID PRIMARY KEY,
	sender_id    TEXT NOT NULL,
	username     TEXT NOT NULL,
	content      TEXT NOT NULL,
	recipient_id TEXT,
	clan_id      TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_created_at_idx ON chat_messages (created_at DESC, id DESC);
`

type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// PostgresMessageRepository keeps the chat history in a chat_messages table.
type PostgresMessageRepository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewPostgresMessageRepository(db *sql.DB, log *slog.Logger) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db, log: log, now: time.Now}
}

// OpenPostgres connects with lib/pq and checks the database answers.
func OpenPostgres(ctx context.Context, dsn string, config PostgresConfig) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (p *PostgresMessageRepository) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *PostgresMessageRepository) Save(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    draft.SenderID,
		Username:    draft.Username,
		Content:     draft.Content,
		RecipientID: draft.RecipientID,
		ClanID:      draft.ClanID,
		CreatedAt:   p.now().UTC(),
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, sender_id, username, content, recipient_id, clan_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		msg.ID.String(),
		msg.SenderID,
		msg.Username,
		msg.Content,
		nullableString(msg.RecipientID),
		nullableString(msg.ClanID),
		msg.CreatedAt,
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// History selects the newest rows then flips them back to chronological order.
func (p *PostgresMessageRepository) History(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender_id, username, content, recipient_id, clan_id, created_at FROM (
			SELECT id, sender_id, username, content, recipient_id, clan_id, created_at
			FROM chat_messages
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		) recent
		ORDER BY created_at ASC, id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var (
			msg         domain.Message
			id          string
			recipientID sql.NullString
			clanID      sql.NullString
		)
		if err := rows.Scan(&id, &msg.SenderID, &msg.Username, &msg.Content, &recipientID, &clanID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		msg.RecipientID = fromNullString(recipientID)
		msg.ClanID = fromNullString(clanID)
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return messages, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	value := s.String
	return &value
}
