package models

// BracketSummary describes a stored prediction bracket
type BracketSummary struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Slug               string `json:"slug"`
	Players            int    `json:"players"`
	CorrectPredictions int    `json:"correct_predictions"`
	TotalPredictions   int    `json:"total_predictions"`
	SavedAt            string `json:"saved_at"`
}

// WebSocket message types
const (
	MessageMatchResolved     = "match_resolved"
	MessagePredictionVerdict = "prediction_verdict"
	MessageProjectionReady   = "projection_ready"
	MessageSessionClosed     = "session_closed"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Session string      `json:"session,omitempty"`
	Payload interface{} `json:"payload"`
}
