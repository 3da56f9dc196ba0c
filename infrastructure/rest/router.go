package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/domain/envelope"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
	DefaultSearchLimit  = 20
)

type Dependencies struct {
	Log          *slog.Logger
	Store        contract.MessageStore
	Searcher     contract.Searcher // nil disables the search endpoint
	Socket       http.Handler
	Metrics      http.Handler
	Connections  func() int
	HistoryLimit int
}

type historyResponse struct {
	Messages []envelope.Message `json:"messages"`
}

type searchResponse struct {
	Hits []domain.SearchHit `json:"hits"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter exposes the chat history, search, the websocket endpoint and the probes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = DefaultHistoryLimit
	}
	h := handlers{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Log))

	api := r.Group("/api")
	api.GET("/messages", h.history)
	api.GET("/messages/search", h.search)

	if deps.Socket != nil {
		r.GET("/ws", gin.WrapH(deps.Socket))
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	r.GET("/healthz", h.health)
	return r
}

type handlers struct {
	deps Dependencies
}

func (h handlers) history(c *gin.Context) {
	limit, ok := parseLimit(c, h.deps.HistoryLimit)
	if !ok {
		return
	}
	messages, err := h.deps.Store.History(c.Request.Context(), limit)
	if err != nil {
		h.deps.Log.Error("History failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, historyResponse{Messages: lo.Map(messages, func(m domain.Message, _ int) envelope.Message {
		return envelope.FromMessage(m)
	})})
}

func (h handlers) search(c *gin.Context) {
	if h.deps.Searcher == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "search is disabled"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "q is required"})
		return
	}
	limit, ok := parseLimit(c, DefaultSearchLimit)
	if !ok {
		return
	}
	hits, err := h.deps.Searcher.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.deps.Log.Error("Search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "search unavailable"})
		return
	}
	c.JSON(http.StatusOK, searchResponse{Hits: hits})
}

func (h handlers) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.deps.Connections != nil {
		body["connections"] = h.deps.Connections()
	}
	c.JSON(http.StatusOK, body)
}

// parseLimit answers 400 itself when the limit is not a positive integer.
// Limits above MaxHistoryLimit are clamped.
func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return min(fallback, MaxHistoryLimit), true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	return min(limit, MaxHistoryLimit), true
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
