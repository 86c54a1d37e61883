package model

import (
	"encoding/json"
	"math"
)

// MaxPicks is the most recommendations a result may carry
const MaxPicks = 3

// NotFoundMessage is the stub error for picks that match no record
const NotFoundMessage = "Document not found in database"

// RecommendationPick is one item chosen by the model
type RecommendationPick struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// ErrorStub stands in for a pick whose record could not be resolved
type ErrorStub struct {
	ID          string `json:"_id"`
	DisplayName string `json:"displayName"`
	Error       string `json:"error"`
}

// HydratedRecord is either a full catalog record or an error stub
type HydratedRecord struct {
	Record CatalogRecord
	Stub   *ErrorStub
}

// MarshalJSON emits whichever side is set
func (h HydratedRecord) MarshalJSON() ([]byte, error) {
	if h.Stub != nil {
		return json.Marshal(h.Stub)
	}
	if h.Record == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(h.Record))
}

// Found reports whether the pick resolved to a real record
func (h HydratedRecord) Found() bool {
	return h.Stub == nil && h.Record != nil
}

// RecommendationResult is the envelope returned for every run
type RecommendationResult struct {
	Success               bool                 `json:"success"`
	RequestID             string               `json:"requestId,omitempty"`
	Query                 string               `json:"query,omitempty"`
	Category              Category             `json:"category,omitempty"`
	City                  *string              `json:"city"`
	Parameters            map[string]string    `json:"parameters"`
	Recommendations       []RecommendationPick `json:"recommendations"`
	FullData              []HydratedRecord     `json:"fullData"`
	ProcessingTimeSeconds float64              `json:"processingTimeSeconds"`
	Error                 string               `json:"error,omitempty"`

	// Err keeps the typed failure for status mapping
	Err error `json:"-"`
}

// RoundSeconds rounds a duration in seconds to millisecond precision
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
