package model

// TrackOutput is the projected output of a completed generation task.
type TrackOutput struct {
	AudioURL string   `json:"audioUrl"`
	Title    string   `json:"title"`
	Lyrics   string   `json:"lyrics,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// GenerationTask is the canonical view of the upstream task. At most one
// non-terminal task is tracked per conversation at a time.
type GenerationTask struct {
	TaskID string       `json:"taskId"`
	Status TaskStatus   `json:"status"`
	Output *TrackOutput `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// TrackMetadata describes a finished track for playback and minting.
type TrackMetadata struct {
	Title  string `json:"title"`
	Genre  string `json:"genre"`
	Mood   string `json:"mood,omitempty"`
	Lyrics string `json:"lyrics,omitempty"`
}

// TrackData is created exactly once per completed task with a usable
// audio URL. Owned by the conversation; read by playback and mint.
type TrackData struct {
	URL      string        `json:"url"`
	Metadata TrackMetadata `json:"metadata"`
}

// GenerationParams are the extracted keyword parameters merged from the
// user's message and the agent's reply (user values win on conflict).
type GenerationParams struct {
	Genre        string   `json:"genre,omitempty"`
	Mood         string   `json:"mood,omitempty"`
	Title        string   `json:"title,omitempty"`
	Instrumental bool     `json:"instrumental"`
	Tags         []string `json:"tags,omitempty"`
}

// GenerationJobPayload is the asynq payload for one generation job.
type GenerationJobPayload struct {
	ConversationID string           `json:"conversationId"`
	UserText       string           `json:"userText"`
	AgentText      string           `json:"agentText"`
	Params         GenerationParams `json:"params"`
	Prompt         string           `json:"prompt"`
	LyricsType     LyricsType       `json:"lyricsType"`
}

// GenerationResult is stored on the job record once the task is terminal.
type GenerationResult struct {
	TaskID string     `json:"taskId"`
	Track  *TrackData `json:"track,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// TaskStatusResponse is the direct status-check view (GET /api/generation/status/:taskId).
type TaskStatusResponse struct {
	TaskID string       `json:"taskId"`
	Status TaskStatus   `json:"status"`
	Output *TrackOutput `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
}
