package main

import (
	"testing"
	"time"

	"guild-chat/domain/envelope"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	req := require.New(t)
	color.Disable()
	defer func() { color.Enable = true }()

	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)
	line := render(envelope.Message{SenderID: "u2", Username: "Bob", Content: "gg", CreatedAt: at}, "u1")

	req.Equal("[15:04:05] Bob: gg", line)
}
