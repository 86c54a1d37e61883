package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RecommendationLog is one row of the recommendation query log
type RecommendationLog struct {
	RequestID        string     `json:"request_id" db:"request_id"`
	Query            string     `json:"query" db:"query"`
	Category         string     `json:"category" db:"category"`
	City             *string    `json:"city,omitempty" db:"city"`
	Parameters       JSONMap    `json:"parameters,omitempty" db:"parameters"`
	RecommendedIDs   JSONArray  `json:"recommended_ids,omitempty" db:"recommended_ids"`
	Success          bool       `json:"success" db:"success"`
	ErrorMessage     *string    `json:"error,omitempty" db:"error_message"`
	ProcessingTimeMs int        `json:"processing_time_ms" db:"processing_time_ms"`
	ClickedRecordID  *string    `json:"clicked_record_id,omitempty" db:"clicked_record_id"`
	Action           *string    `json:"action,omitempty" db:"action"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	FeedbackAt       *time.Time `json:"feedback_at,omitempty" db:"feedback_at"`
}

// NewRecommendationLog builds a log row from a finished run
func NewRecommendationLog(result *RecommendationResult) *RecommendationLog {
	entry := &RecommendationLog{
		RequestID:        result.RequestID,
		Query:            result.Query,
		Category:         string(result.Category),
		City:             result.City,
		Parameters:       JSONMap{},
		RecommendedIDs:   JSONArray{},
		Success:          result.Success,
		ProcessingTimeMs: int(result.ProcessingTimeSeconds * 1000),
	}
	for k, v := range result.Parameters {
		entry.Parameters[k] = v
	}
	for _, pick := range result.Recommendations {
		entry.RecommendedIDs = append(entry.RecommendedIDs, pick.ID)
	}
	if result.Error != "" {
		msg := result.Error
		entry.ErrorMessage = &msg
	}
	return entry
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, j)
}

func scanJSON(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
