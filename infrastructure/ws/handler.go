package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"guild-chat/runtime"
	"guild-chat/sink"

	"github.com/gorilla/websocket"
)

type Config struct {
	BufferSize    int
	MaxFrameBytes int64
	PongWait      time.Duration
	WriteWait     time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:    64,
		MaxFrameBytes: 1 << 16,
		PongWait:      45 * time.Second,
		WriteWait:     10 * time.Second,
	}
}

// Handler upgrades HTTP requests to chat connections.
// Every connection starts pending in the registry and is removed when its socket ends.
type Handler struct {
	log        *slog.Logger
	registry   *runtime.Registry
	dispatcher *runtime.Dispatcher
	upgrader   websocket.Upgrader
	config     Config
}

func NewHandler(log *slog.Logger, registry *runtime.Registry, dispatcher *runtime.Dispatcher, config Config) *Handler {
	return &Handler{
		log:        log,
		registry:   registry,
		dispatcher: dispatcher,
		config:     config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	out := sink.NewSocketSink(h.log, h.config.BufferSize)
	session := runtime.NewSession(out)
	h.registry.Register(session)
	h.log.Debug("Connection opened", "session_id", session.ID(), "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.registry.Remove(session)
		_ = conn.Close()
		h.log.Debug("Connection closed", "session_id", session.ID())
	}()

	go h.writeLoop(conn, out)
	h.readLoop(ctx, conn, session)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, session *runtime.Session) {
	conn.SetReadLimit(h.config.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Connection lost", "session_id", session.ID(), "error", err)
			}
			return
		}
		h.dispatcher.Handle(ctx, session, data)
	}
}

// writeLoop is the only writer of conn.
func (h *Handler) writeLoop(conn *websocket.Conn, out *sink.SocketSink) {
	ticker := time.NewTicker(h.config.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-out.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-out.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
