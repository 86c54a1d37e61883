package model

// QueryIntent is the structured reading of a free-text query
type QueryIntent struct {
	Category   Category          `json:"category"`
	City       *string           `json:"cityName"`
	Parameters map[string]string `json:"parameters"`
	Confidence float64           `json:"confidence"`
	// Source records whether the intent came from the model or the keyword fallback
	Source string `json:"source,omitempty"`
}

const (
	IntentSourceModel    = "model"
	IntentSourceFallback = "fallback"
)

// CityName returns the city or an empty string when absent
func (i QueryIntent) CityName() string {
	if i.City == nil {
		return ""
	}
	return *i.City
}

// HasCity reports whether a non-empty city was identified
func (i QueryIntent) HasCity() bool {
	return i.City != nil && *i.City != ""
}
