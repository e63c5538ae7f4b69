package model

// TaskStatus is the canonical lifecycle of a generation task on the
// upstream API. Transitions are monotonic: pending -> processing ->
// completed|failed; a terminal status never transitions again.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ParseTaskStatus maps an upstream status string onto the canonical set.
// Unknown strings fail open to pending so polling keeps going.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch TaskStatus(raw) {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return TaskStatus(raw), true
	}
	return TaskStatusPending, false
}

// JobStatus tracks the asynq-backed generation job wrapping the upstream task.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// MintStatus is the mint attempt lifecycle.
type MintStatus string

const (
	MintStatusIdle    MintStatus = "idle"
	MintStatusMinting MintStatus = "minting"
	MintStatusSuccess MintStatus = "success"
	MintStatusError   MintStatus = "error"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// LyricsType selects how the upstream API handles vocals.
type LyricsType string

const (
	LyricsTypeGenerate     LyricsType = "generate"
	LyricsTypeUser         LyricsType = "user"
	LyricsTypeInstrumental LyricsType = "instrumental"
)
