package model

import "time"

// Job represents a background generation job in the system
type Job struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	TaskID         string     `json:"taskId,omitempty"`
	Status         JobStatus  `json:"status"`
	Attempt        int        `json:"attempt"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	Error          *string    `json:"error,omitempty"`
	Payload        []byte     `json:"payload,omitempty"` // JSON, persisted with the record
	Result         []byte     `json:"result,omitempty"`  // JSON, persisted with the record
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// JobStatusResponse is the API view of a generation job.
type JobStatusResponse struct {
	JobID          string     `json:"jobId"`
	ConversationID string     `json:"conversationId"`
	TaskID         string     `json:"taskId,omitempty"`
	Status         JobStatus  `json:"status"`
	Attempt        int        `json:"attempt"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}
