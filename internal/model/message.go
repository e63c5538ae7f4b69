package model

import "time"

// ChatMessage is one transcript entry. Messages are append-only with a
// single relaxation: a trailing status line is replaced in place as the
// generation progresses, so the transcript keeps one evolving spinner line
// instead of one line per poll tick.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the API view of one chat session.
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	ActiveJob string        `json:"activeJobId,omitempty"`
	Track     *TrackData    `json:"track,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SendMessageRequest is the body for POST /api/conversations/:id/messages.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// SendMessageResponse carries the agent's reply and, when the message kicked
// off music generation, the queued job id.
type SendMessageResponse struct {
	ConversationID string        `json:"conversationId"`
	Messages       []ChatMessage `json:"messages"`
	JobID          string        `json:"jobId,omitempty"`
}

// AgentInfo describes one registered agent on the chat backend.
type AgentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
