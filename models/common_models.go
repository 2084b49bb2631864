package models

import "time"

// Health status constants
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthResponse represents the /health endpoint payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Providers map[string]interface{} `json:"providers"`
	FilesDir  string                 `json:"files_dir"`
	Discord   map[string]interface{} `json:"discord,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// FileErrorResponse is returned by the file endpoint when an artifact is missing.
// It is still served with HTTP 200.
type FileErrorResponse struct {
	Error string `json:"error"`
}
