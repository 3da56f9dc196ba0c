package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
	"guild-chat/observability"
)

const DefaultMaxContentLength = 2000

// Relay turns a posted command into a persisted, broadcast message.
// Persistence always completes before broadcast, and the broadcast envelope
// is built from the store's return value only: every peer sees the same id and timestamp.
type Relay struct {
	log              *slog.Logger
	store            contract.MessageStore
	broadcaster      contract.Broadcaster
	moderator        contract.Moderator
	observers        []contract.MessageObserver
	metrics          *observability.Metrics
	maxContentLength int
}

type RelayOption func(*Relay)

// WithModerator censors content before it is persisted.
func WithModerator(m contract.Moderator) RelayOption {
	return func(r *Relay) { r.moderator = m }
}

// WithObservers registers side effects run after each broadcast.
func WithObservers(observers ...contract.MessageObserver) RelayOption {
	return func(r *Relay) { r.observers = append(r.observers, observers...) }
}

func WithMetrics(m *observability.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithMaxContentLength(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.maxContentLength = n
		}
	}
}

func NewRelay(log *slog.Logger, store contract.MessageStore, broadcaster contract.Broadcaster, opts ...RelayOption) *Relay {
	r := &Relay{
		log:              log,
		store:            store,
		broadcaster:      broadcaster,
		maxContentLength: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Post validates, persists and broadcasts a message sent by session.
func (r *Relay) Post(ctx context.Context, session *Session, cmd domain.PostMessageCommand) (domain.Message, error) {
	identity, ok := session.Identity()
	if !ok {
		return domain.Message{}, errors.ErrUnauthenticated
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(cmd.Content) > r.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: more than %d characters", errors.ErrContentTooLong, r.maxContentLength)
	}

	content, lang := cmd.Content, ""
	if r.moderator != nil {
		verdict := r.moderator.Inspect(cmd.Content)
		content, lang = verdict.Content, verdict.Lang
		if len(verdict.CensoredWords) > 0 {
			r.log.Info("Message censored",
				"sender_id", identity.UserID,
				"lang", verdict.Lang,
				"words", len(verdict.CensoredWords))
		}
	}

	start := time.Now()
	msg, err := r.store.Save(ctx, cmd.ToDraft(identity, content))
	r.metrics.ObservePersist(time.Since(start))
	if err != nil {
		r.log.Error("Failed to persist message", "sender_id", identity.UserID, "error", err)
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	delivered := r.broadcaster.Broadcast(ctx, envelope.FromMessage(msg))
	r.metrics.Relayed(lang)
	r.log.Debug("Message relayed",
		"message_id", msg.ID,
		"sender_id", msg.SenderID,
		"delivered", delivered)

	for _, o := range r.observers {
		o.Observe(msg)
	}
	return msg, nil
}
