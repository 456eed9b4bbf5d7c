package social

// ProvidersResponse is the body of GET /v2/auth/social/providers.
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

// ProviderInfo describes one enabled provider.
type ProviderInfo struct {
	ID       string `json:"id"`
	StartURL string `json:"start_url"`
	Refresh  bool   `json:"refresh"`
	Revoke   bool   `json:"revoke"`
}

// StartResponse is returned instead of a redirect when the client asks for
// JSON (single-page apps that navigate themselves).
type StartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CallbackResponse is the body of a successful callback. It never carries
// provider tokens.
type CallbackResponse struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email,omitempty"`
	EmailVerified  bool   `json:"email_verified"`
	DisplayName    string `json:"display_name,omitempty"`
	UserID         string `json:"user_id"`
	RedirectTo     string `json:"redirect_to,omitempty"`
}
