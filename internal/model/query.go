package model

// RecommendRequest represents a free-text recommendation request
type RecommendRequest struct {
	Query string `json:"query" binding:"required"`
}

// CategorySearchRequest represents a structured recommendation request
type CategorySearchRequest struct {
	Category string            `json:"category" binding:"required"`
	City     string            `json:"city" binding:"required"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// ClassifyResponse wraps a classification for the HTTP surface
type ClassifyResponse struct {
	Query  string      `json:"query"`
	Intent QueryIntent `json:"intent"`
	Took   int64       `json:"took_ms"`
}

// CatalogListRequest carries the query string of a catalog listing
type CatalogListRequest struct {
	City     string `form:"city"`
	Category string `form:"category"`
	Limit    int    `form:"limit"`
	Skip     int    `form:"skip"`
}

// FeedbackRequest represents user feedback on a recommendation
type FeedbackRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	RecordID  string `json:"record_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, save, visit, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
