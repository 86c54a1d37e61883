package model

// Health states
const (
	HealthOK       = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "unhealthy"
	HealthDisabled = "disabled"
)

// ComponentHealth is the state of one dependency
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport is returned by the detailed health check
type HealthReport struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}
