package commands

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

// Handlers provides HTTP handlers for the voice command endpoints
type Handlers struct {
	dispatcher *Dispatcher
	recognizer Recognizer
	logger     *zap.Logger
}

// NewHandlers creates new command handlers
func NewHandlers(dispatcher *Dispatcher, recognizer Recognizer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher: dispatcher,
		recognizer: recognizer,
		logger:     logger,
	}
}

// RegisterRoutes registers the command routes
func (h *Handlers) RegisterRoutes(router gin.IRoutes) {
	router.POST("/transcribe", h.Transcribe)
	router.POST("/execute_command", h.ExecuteCommand)
	router.GET("/operations", h.ListOperations)
}

// Transcribe handles a multipart audio upload in field "file"
func (h *Handlers) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		users.WriteFormFileError(c, "file", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded audio", zap.String("filename", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file", "type": "internal_error"})
		return
	}
	defer f.Close()

	text, err := h.recognizer.Recognize(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.logger.Error("Speech recognition failed", zap.String("filename", fh.Filename), zap.Error(err))
		writeError(c, err, "")
		return
	}

	h.logger.Info("Transcribed audio", zap.String("filename", fh.Filename), zap.Int("chars", len(text)))
	c.JSON(http.StatusOK, TranscriptionResult{Text: text})
}

// ExecuteCommand handles form field "text" and runs the command it describes
func (h *Handlers) ExecuteCommand(c *gin.Context) {
	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "text is required", "type": "missing_field"})
		return
	}

	result, err := h.dispatcher.Execute(c.Request.Context(), text)
	if err != nil {
		writeError(c, err, text)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListOperations returns the command manifest
func (h *Handlers) ListOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": Operations()})
}

func writeError(c *gin.Context, err error, text string) {
	body := gin.H{"error": err.Error(), "type": ErrorType(err)}
	if text != "" {
		body["command"] = text
	}
	c.JSON(StatusCode(err), body)
}
