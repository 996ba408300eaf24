package handlers

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// ShareResponse is the share link of a session
type ShareResponse struct {
	URL string `json:"url"`
}

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL string `json:"base_url"`
}
