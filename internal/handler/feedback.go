package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"yescity/internal/model"
	"yescity/internal/service"
)

// FeedbackLogger records user actions against earlier recommendations
type FeedbackLogger interface {
	LogFeedback(ctx context.Context, req *model.FeedbackRequest) error
}

var validActions = map[string]bool{
	"click":        true,
	"save":         true,
	"visit":        true,
	"view_details": true,
}

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	feedback FeedbackLogger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedback FeedbackLogger) *FeedbackHandler {
	return &FeedbackHandler{
		feedback: feedback,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, save, visit, view_details"})
		return
	}

	err := h.feedback.LogFeedback(c.Request.Context(), &req)
	switch {
	case errors.Is(err, service.ErrQueryLogDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feedback is not enabled"})
		return
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown request_id"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
