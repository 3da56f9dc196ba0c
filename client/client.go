// Package client is the consuming side of the chat: history over REST,
// live messages over the websocket, reconciled into a projection.Timeline.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
	"guild-chat/projection"

	"github.com/gorilla/websocket"
)

type Config struct {
	// BaseURL of the server, e.g. http://localhost:8080
	BaseURL      string
	Identity     domain.Identity
	Token        string
	HistoryLimit int
	HTTPClient   *http.Client
	DialTimeout  time.Duration
}

// AuthError is returned when the server rejects the auth envelope.
type AuthError struct {
	Code    errors.Code
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (%s): %s", e.Code, e.Message)
}

// Client is not reusable: once the connection is lost the caller builds a new one.
type Client struct {
	config  Config
	log     *slog.Logger
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func New(config Config, log *slog.Logger) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}
	return &Client{config: config, log: log}
}

// History fetches the latest messages, oldest first.
func (c *Client) History(ctx context.Context) ([]envelope.Message, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/api/messages"
	if c.config.HistoryLimit > 0 {
		endpoint += "?limit=" + strconv.Itoa(c.config.HistoryLimit)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	response, err := c.config.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %d", response.StatusCode)
	}
	var body struct {
		Messages []envelope.Message `json:"messages"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return body.Messages, nil
}

// Connect opens the websocket and performs the handshake.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := socketURL(c.config.BaseURL)
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	c.conn = conn

	if err := c.write(envelope.Inbound{
		Type:     envelope.TypeAuth,
		UserID:   c.config.Identity.UserID,
		Username: c.config.Identity.Username,
		Token:    c.config.Token,
	}); err != nil {
		_ = conn.Close()
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.config.DialTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	var ack envelope.Received
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %v", errors.ErrConnectionLost, err)
	}
	switch ack.Type {
	case envelope.TypeAuthenticated:
		c.log.Debug("Authenticated", "user_id", ack.UserID)
		return nil
	case envelope.TypeError:
		_ = conn.Close()
		return &AuthError{Code: ack.Code, Message: ack.Message}
	default:
		_ = conn.Close()
		return fmt.Errorf("%w: unexpected %q frame during handshake", errors.ErrInvalidEnvelope, ack.Type)
	}
}

// Send posts a chat message. The server answers with the broadcast, or an error frame.
func (c *Client) Send(content string) error {
	return c.write(envelope.Inbound{Type: envelope.TypeMessage, Content: content})
}

// Sync loads the history into the timeline, connects, then appends every live
// message until the connection ends. It never reconnects: the returned error
// wraps errors.ErrConnectionLost unless ctx was cancelled.
// Error frames are passed to onError, which may be nil.
func (c *Client) Sync(ctx context.Context, timeline *projection.Timeline, onError func(envelope.Error)) error {
	history, err := c.History(ctx)
	if err != nil {
		return err
	}
	timeline.Load(history)

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Receive(ctx, timeline, onError)
}

// Receive reads frames of an already connected client into the timeline.
func (c *Client) Receive(ctx context.Context, timeline *projection.Timeline, onError func(envelope.Error)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		var frame envelope.Received
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errors.ErrConnectionLost, err)
		}
		switch frame.Type {
		case envelope.TypeMessage:
			timeline.Consume(frame.AsMessage())
		case envelope.TypeError:
			if onError != nil {
				onError(envelope.Error{Type: frame.Type, Code: frame.Code, Message: frame.Message})
			}
		default:
			c.log.Debug("Ignored frame", "type", frame.Type)
		}
	}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) write(in envelope.Inbound) error {
	if c.conn == nil {
		return errors.ErrConnectionClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(in); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConnectionLost, err)
	}
	return nil
}

func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
