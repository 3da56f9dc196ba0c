package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"guild-chat/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openIndex(t *testing.T) *Index {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewIndex(writer, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func message(username, content string) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		SenderID:  "id-" + username,
		Username:  username,
		Content:   content,
		CreatedAt: time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC),
	}
}

func TestIndex_Search_Finds_Matching_Messages(t *testing.T) {
	req := require.New(t)
	index := openIndex(t)
	raid := message("Alice", "raid starts at nine tonight")
	req.NoError(index.Index(raid))
	req.NoError(index.Index(message("Bob", "who wants to farm dungeons")))

	hits, err := index.Search(context.Background(), "raid", 10)

	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(raid.ID.String(), hits[0].MessageID)
	req.Equal("Alice", hits[0].Username)
	req.Equal("id-Alice", hits[0].SenderID)
	req.Equal(raid.Content, hits[0].Content)
	req.True(raid.CreatedAt.Equal(hits[0].CreatedAt))
	req.Greater(hits[0].Score, 0.0)
}

func TestIndex_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	index := openIndex(t)
	for i := 0; i < 5; i++ {
		req.NoError(index.Index(message("Alice", "loot drop incoming")))
	}

	hits, err := index.Search(context.Background(), "loot", 3)
	req.NoError(err)
	req.Len(hits, 3)
}

func TestIndex_Reindex_Replaces_Document(t *testing.T) {
	req := require.New(t)
	index := openIndex(t)
	msg := message("Alice", "first draft")
	req.NoError(index.Index(msg))
	msg.Content = "second draft"
	req.NoError(index.Index(msg))

	hits, err := index.Search(context.Background(), "draft", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("second draft", hits[0].Content)
}

func TestIndex_Search_Blank_Query(t *testing.T) {
	req := require.New(t)
	index := openIndex(t)
	req.NoError(index.Index(message("Alice", "anything")))

	hits, err := index.Search(context.Background(), "  ", 10)
	req.NoError(err)
	req.Empty(hits)
}
