package ws

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
	"guild-chat/runtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelDebug)

type memoryStore struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (m *memoryStore) Save(_ context.Context, draft domain.Draft) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := domain.Message{
		ID:        uuid.New(),
		SenderID:  draft.SenderID,
		Username:  draft.Username,
		Content:   draft.Content,
		CreatedAt: time.Now().UTC(),
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryStore) History(_ context.Context, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) > limit {
		return append([]domain.Message(nil), m.messages[len(m.messages)-limit:]...), nil
	}
	return append([]domain.Message(nil), m.messages...), nil
}

type trustingAuthenticator struct{}

func (trustingAuthenticator) Authenticate(in envelope.Inbound) (domain.Identity, error) {
	if in.UserID == "" || in.Username == "" {
		return domain.Identity{}, errors.ErrInvalidEnvelope
	}
	return domain.Identity{UserID: in.UserID, Username: in.Username}, nil
}

type fixture struct {
	registry *runtime.Registry
	store    *memoryStore
	url      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := &memoryStore{}
	registry := runtime.NewRegistry(testLog, nil)
	relay := runtime.NewRelay(testLog, store, registry)
	dispatcher := runtime.NewDispatcher(testLog, trustingAuthenticator{}, relay, registry, nil)
	server := httptest.NewServer(NewHandler(testLog, registry, dispatcher, DefaultConfig()))
	t.Cleanup(func() {
		registry.Shutdown()
		server.Close()
	})
	return fixture{registry: registry, store: store, url: "ws" + strings.TrimPrefix(server.URL, "http")}
}

func (f fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope.Received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received envelope.Received
	require.NoError(t, conn.ReadJSON(&received))
	return received
}

func authenticate(t *testing.T, conn *websocket.Conn, userID, username string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(envelope.Inbound{Type: envelope.TypeAuth, UserID: userID, Username: username}))
	ack := read(t, conn)
	require.Equal(t, envelope.TypeAuthenticated, ack.Type)
	require.Equal(t, userID, ack.UserID)
}

func TestHandler_Two_Peers_Receive_The_Same_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, bob, carol := f.dial(t), f.dial(t), f.dial(t)
	authenticate(t, alice, "u1", "Alice")
	authenticate(t, bob, "u2", "Bob")
	authenticate(t, carol, "u3", "Carol")

	// Given Carol left
	req.NoError(carol.Close())
	req.Eventually(func() bool { return f.registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	// When Alice says hi
	req.NoError(alice.WriteJSON(envelope.Inbound{Type: envelope.TypeMessage, Content: "hi"}))

	// Then both peers get the same canonical message
	fromAlice, fromBob := read(t, alice), read(t, bob)
	req.Equal(envelope.TypeMessage, fromAlice.Type)
	req.Equal("hi", fromAlice.Content)
	req.Equal("u1", fromAlice.SenderID)
	req.Equal("Alice", fromAlice.Username)
	req.NotEmpty(fromAlice.ID)
	req.Equal(fromAlice, fromBob)

	stored, err := f.store.History(context.Background(), 10)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(stored[0].ID.String(), fromBob.ID)
}

func TestHandler_Message_Before_Auth_Keeps_Connection_Open(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t)

	req.NoError(conn.WriteJSON(envelope.Inbound{Type: envelope.TypeMessage, Content: "x"}))

	rejected := read(t, conn)
	req.Equal(envelope.TypeError, rejected.Type)
	req.Equal(errors.CodeUnauthenticated, rejected.Code)

	// Then the same socket can still authenticate
	authenticate(t, conn, "u1", "Alice")
	stored, err := f.store.History(context.Background(), 10)
	req.NoError(err)
	req.Empty(stored)
}

func TestHandler_Disconnect_Removes_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t)
	authenticate(t, conn, "u1", "Alice")
	req.Equal(1, f.registry.Authenticated())

	req.NoError(conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	req.NoError(conn.Close())

	req.Eventually(func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Invalid_Frame_Is_Answered(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	rejected := read(t, conn)
	req.Equal(errors.CodeInvalidEnvelope, rejected.Code)
}

func TestHandler_Shutdown_Closes_Sockets(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t)
	authenticate(t, conn, "u1", "Alice")

	f.registry.Shutdown()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
}
