package commandlog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers exposes the command log over HTTP
type Handlers struct {
	recorder *Recorder
	logger   *zap.Logger
}

// NewHandlers creates new command log handlers
func NewHandlers(recorder *Recorder, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{recorder: recorder, logger: logger}
}

// RegisterRoutes registers the command log routes
func (h *Handlers) RegisterRoutes(router gin.IRoutes) {
	router.GET("/commands", h.ListCommands)
	router.GET("/commands/summary", h.Summary)
}

// ListCommands handles GET /commands?limit=N&action=create_user
func (h *Handlers) ListCommands(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	entries, err := h.recorder.List(c.Request.Context(), c.Query("action"), limit)
	if err != nil {
		h.logger.Error("Failed to list command log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list commands", "type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"commands": entries, "count": len(entries)})
}

// Summary handles GET /commands/summary?limit=N
func (h *Handlers) Summary(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	summary, err := h.recorder.Summary(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to summarize command log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize commands", "type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return DefaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "type": "invalid_query"})
		return 0, false
	}
	return limit, true
}
