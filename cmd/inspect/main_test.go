package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"guild-chat/domain"
	"guild-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	defer db.Close()

	// Given two stored messages
	repository := repositories.NewMessageRepository(db, slog.Default())
	clan := "clan-7"
	_, err = repository.Save(context.Background(), domain.Draft{SenderID: "u1", Username: "Alice", Content: "first"})
	req.NoError(err)
	_, err = repository.Save(context.Background(), domain.Draft{SenderID: "u2", Username: "Bob", Content: "second", ClanID: &clan})
	req.NoError(err)

	// When the whole store is dumped
	var out bytes.Buffer
	req.NoError(dump(db, &out, 0))

	// Then both rows are printed
	text := out.String()
	req.Contains(text, "Alice")
	req.Contains(text, "first")
	req.Contains(text, "clan:clan-7")

	// And the limit is honoured
	out.Reset()
	req.NoError(dump(db, &out, 1))
	req.Contains(out.String(), "first")
	req.NotContains(out.String(), "second")
}
