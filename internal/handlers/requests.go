package handlers

// OpenSessionRequest represents a request to open a bracket session
type OpenSessionRequest struct {
	Tournament string `json:"tournament"`
	Mode       string `json:"mode"`
}

// PredictRequest represents a prediction for one match
type PredictRequest struct {
	MatchID     *int `json:"match_id"`
	WinnerID    *int `json:"winner_id"`
	WinnerScore int  `json:"winner_score"`
	LoserScore  int  `json:"loser_score"`
}

// SettingsRequest represents a settings update
type SettingsRequest struct {
	BaseURL *string `json:"base_url"`
}
