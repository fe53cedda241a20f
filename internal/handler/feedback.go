package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pcstore/internal/model"
)

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	assistant Assistant
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(assistant Assistant) *FeedbackHandler {
	return &FeedbackHandler{assistant: assistant}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !model.FeedbackActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, add_to_cart, view_details"})
		return
	}

	if err := h.assistant.LogFeedback(c.Request.Context(), &req); err != nil {
		writeError(c, "Failed to log feedback", err)
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
