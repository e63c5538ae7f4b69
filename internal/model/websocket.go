package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is a generation status tick pushed to the page.
type WSStatusMessage struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversationId"`
	TaskID         string     `json:"taskId,omitempty"`
	Status         TaskStatus `json:"status"`
	StatusText     string     `json:"statusText,omitempty"`
	Attempt        int        `json:"attempt"`
}

// WSCompleteMessage carries the finished track.
type WSCompleteMessage struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversationId"`
	Track          *TrackData `json:"track"`
}

// WSErrorMessage represents a terminal failure
type WSErrorMessage struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversationId"`
	Error          WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
