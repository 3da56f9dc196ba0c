package client

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"guild-chat/auth"
	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
	"guild-chat/infrastructure/rest"
	"guild-chat/infrastructure/ws"
	"guild-chat/projection"
	"guild-chat/runtime"

	"github.com/google/uuid"
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
	msg := domain.Message{ID: uuid.New(), SenderID: draft.SenderID, Username: draft.Username, Content: draft.Content, CreatedAt: time.Now().UTC()}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryStore) History(_ context.Context, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := max(0, len(m.messages)-limit)
	return append([]domain.Message(nil), m.messages[start:]...), nil
}

type server struct {
	registry *runtime.Registry
	store    *memoryStore
	url      string
}

func startServer(t *testing.T, authenticator contract.Authenticator) server {
	t.Helper()
	store := &memoryStore{}
	registry := runtime.NewRegistry(testLog, nil)
	relay := runtime.NewRelay(testLog, store, registry)
	dispatcher := runtime.NewDispatcher(testLog, authenticator, relay, registry, nil)
	router := rest.NewRouter(rest.Dependencies{
		Log:    testLog,
		Store:  store,
		Socket: ws.NewHandler(testLog, registry, dispatcher, ws.DefaultConfig()),
	})
	httpServer := httptest.NewServer(router)
	t.Cleanup(func() {
		registry.Shutdown()
		httpServer.Close()
	})
	return server{registry: registry, store: store, url: httpServer.URL}
}

func TestClient_Sync_Baseline_Then_Live(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, auth.NewAuthenticator(nil, testLog))
	ctx := context.Background()
	for _, content := range []string{"first", "second"} {
		_, err := srv.store.Save(ctx, domain.Draft{SenderID: "u0", Username: "Zed", Content: content})
		req.NoError(err)
	}

	alice := New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u1", Username: "Alice"}}, testLog)
	timeline := projection.NewTimeline()
	syncCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- alice.Sync(syncCtx, timeline, nil) }()

	// Given Alice got the history and is connected
	req.Eventually(func() bool { return srv.registry.Authenticated() == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal(2, timeline.Len())

	// When Bob posts
	bob := New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u2", Username: "Bob"}}, testLog)
	req.NoError(bob.Connect(ctx))
	t.Cleanup(func() { _ = bob.Close() })
	req.NoError(bob.Send("third"))

	// Then it lands after the baseline
	req.Eventually(func() bool { return timeline.Len() == 3 }, 2*time.Second, 10*time.Millisecond)
	messages := timeline.Messages()
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	req.Equal("third", messages[2].Content)
	req.Equal("u2", messages[2].SenderID)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestClient_Connection_Lost_Is_Not_Retried(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, auth.NewAuthenticator(nil, testLog))
	alice := New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u1", Username: "Alice"}}, testLog)
	done := make(chan error, 1)
	go func() { done <- alice.Sync(context.Background(), projection.NewTimeline(), nil) }()
	req.Eventually(func() bool { return srv.registry.Authenticated() == 1 }, 2*time.Second, 10*time.Millisecond)

	// When the server drops every connection
	srv.registry.Shutdown()

	select {
	case err := <-done:
		req.ErrorIs(err, errors.ErrConnectionLost)
	case <-time.After(2 * time.Second):
		req.Fail("Sync should return once the connection is lost")
	}
	req.Equal(0, srv.registry.Len())
}

func TestClient_Error_Frames_Reach_Callback(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, auth.NewAuthenticator(nil, testLog))
	alice := New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u1", Username: "Alice"}}, testLog)
	req.NoError(alice.Connect(context.Background()))

	received := make(chan envelope.Error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = alice.Receive(ctx, projection.NewTimeline(), func(e envelope.Error) { received <- e })
	}()

	req.NoError(alice.Send("   "))

	select {
	case e := <-received:
		req.Equal(errors.CodeEmptyContent, e.Code)
	case <-time.After(2 * time.Second):
		req.Fail("expected an empty-content error")
	}
}

func TestClient_Auth_Rejected(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokens("a-long-enough-secret-for-tests")
	srv := startServer(t, auth.NewAuthenticator(tokens, testLog))

	alice := New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u1", Username: "Alice"}, Token: "forged"}, testLog)
	err := alice.Connect(context.Background())

	var authErr *AuthError
	req.ErrorAs(err, &authErr)
	req.Equal(errors.CodeInvalidToken, authErr.Code)

	// With a valid token the handshake succeeds
	token, err := tokens.GenerateToken("u1", "Alice", time.Minute)
	req.NoError(err)
	alice = New(Config{BaseURL: srv.url, Identity: domain.Identity{UserID: "u1", Username: "Alice"}, Token: token}, testLog)
	req.NoError(alice.Connect(context.Background()))
	req.NoError(alice.Close())
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://chat.example.com/", "wss://chat.example.com/ws"},
		{"http://host/prefix", "ws://host/prefix/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := socketURL(tt.base)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
