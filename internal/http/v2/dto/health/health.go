package health

// HealthResponse is the body of GET /readyz.
type HealthResponse struct {
	Status     string            `json:"status"` // ready | unavailable
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components"`
}
