package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"guild-chat/domain"

	"github.com/blugelabs/bluge"
)

const (
	fieldID        = "_id"
	fieldContent   = "content"
	fieldSenderID  = "sender_id"
	fieldUsername  = "username"
	fieldCreatedAt = "created_at"
)

// Index keeps a full text index of the relayed messages.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Index adds or replaces the document of a message.
func (i *Index) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField(fieldContent, msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSenderID, msg.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldUsername, msg.Username).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, msg.CreatedAt).StoreValue())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", msg.ID, err)
	}
	return nil
}

// Search returns at most limit messages matching the query, best match first.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	hits := []domain.SearchHit{}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return hits, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewTopNSearch(limit, bluge.NewMatchQuery(query).SetField(fieldContent))
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	match, err := matches.Next()
	for err == nil && match != nil {
		hit := domain.SearchHit{Score: match.Score}
		if visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.MessageID = string(value)
			case fieldContent:
				hit.Content = string(value)
			case fieldSenderID:
				hit.SenderID = string(value)
			case fieldUsername:
				hit.Username = string(value)
			case fieldCreatedAt:
				if at, decodeErr := bluge.DecodeDateTime(value); decodeErr == nil {
					hit.CreatedAt = at.UTC()
				}
			}
			return true
		}); visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}

	i.log.Debug("Search executed", "query", query, "hits", len(hits))
	return hits, nil
}
