package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pcstore/internal/model"
	"pcstore/internal/service"
	"pcstore/internal/taxonomy"
)

// Assistant is the pipeline the HTTP layer talks to
type Assistant interface {
	Recommend(ctx context.Context, req *model.AssistantRequest) (*model.AssistantResponse, error)
	RecommendStream(ctx context.Context, req *model.AssistantRequest, callback service.AssistantEventCallback) (*model.AssistantResponse, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	Taxonomy() []taxonomy.Entry
	LogFeedback(ctx context.Context, req *model.FeedbackRequest) error
}

// AssistantHandler handles assistant-related HTTP requests
type AssistantHandler struct {
	assistant Assistant
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Recommend handles POST /api/v1/assistant
func (h *AssistantHandler) Recommend(c *gin.Context) {
	var req model.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.assistant.Recommend(c.Request.Context(), &req)
	if err != nil {
		writeError(c, "Recommendation failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RecommendStream handles POST /api/v1/assistant/stream - SSE streaming reply
func (h *AssistantHandler) RecommendStream(c *gin.Context) {
	var req model.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	response, err := h.assistant.RecommendStream(ctx, &req, func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("assistant stream ended with error")
		sendSSE(c, "error", map[string]any{"error": err.Error(), "status": mapErrorToHTTPStatus(err)})
		flusher.Flush()
		return
	}

	sendSSE(c, "done", map[string]any{
		"recommendation_id": response.RecommendationID,
		"took_ms":           response.Took,
	})
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

// GetProduct handles GET /api/v1/products/:id
func (h *AssistantHandler) GetProduct(c *gin.Context) {
	product, err := h.assistant.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// Taxonomy handles GET /api/v1/taxonomy
func (h *AssistantHandler) Taxonomy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.assistant.Taxonomy()})
}

func writeError(c *gin.Context, prefix string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg(prefix)
	}
	c.JSON(status, gin.H{"error": prefix + ": " + err.Error()})
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case model.IsKind(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case model.IsKind(err, model.ErrNotFound):
		return http.StatusNotFound
	case model.IsKind(err, model.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
