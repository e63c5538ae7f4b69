package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/model"
)

const TaskTypeGenerate = "generation:process"

// GenerationService manages generation job records and queues work for the
// generation worker. Job state lives in Redis so a status poll from the
// browser and the worker goroutine see the same record.
type GenerationService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	generator   client.MusicGenerator
}

func NewGenerationService(redisClient *redis.Client, asynqClient *asynq.Client, generator client.MusicGenerator) *GenerationService {
	return &GenerationService{
		redis:       redisClient,
		asynqClient: asynqClient,
		generator:   generator,
	}
}

// StartGeneration creates a job record and queues it for the worker.
func (s *GenerationService) StartGeneration(ctx context.Context, payload *model.GenerationJobPayload) (*model.Job, error) {
	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:             jobID,
		ConversationID: payload.ConversationID,
		Status:         model.JobStatusQueued,
		CreatedAt:      now,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	job.Payload = payloadBytes

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newGenerateTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// MaxRetry is zero: re-running a generation job would submit a second
	// upstream task and bill twice for the same request.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("generate"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return job, nil
}

// GetStatus returns the current status of a generation job
func (s *GenerationService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:          job.ID,
		ConversationID: job.ConversationID,
		TaskID:         job.TaskID,
		Status:         job.Status,
		Attempt:        job.Attempt,
		CurrentStep:    job.CurrentStep,
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}, nil
}

// GetResult returns the finished track of a completed generation job
func (s *GenerationService) GetResult(ctx context.Context, jobID string) (*model.TrackData, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}

	var track model.TrackData
	if err := json.Unmarshal(job.Result, &track); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &track, nil
}

// CheckTask queries the upstream task API directly and returns the
// normalized record. Used by the direct status endpoint, which checks
// immediately with no warm-up.
func (s *GenerationService) CheckTask(ctx context.Context, taskID string) (*model.TaskStatusResponse, error) {
	record, err := s.generator.CheckTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &model.TaskStatusResponse{
		TaskID: record.TaskID,
		Status: record.Status,
		Output: record.Output,
		Error:  record.Error,
	}, nil
}

// MarkRunning records the upstream task id and moves the job to running
// (called by worker)
func (s *GenerationService) MarkRunning(ctx context.Context, jobID, taskID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.TaskID = taskID
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// UpdateJobProgress records the latest observation (called by worker)
func (s *GenerationService) UpdateJobProgress(ctx context.Context, jobID string, attempt int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Attempt = attempt
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks job as succeeded with the finished track (called by worker)
func (s *GenerationService) CompleteJob(ctx context.Context, jobID string, track *model.TrackData) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(track)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *GenerationService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// CancelJob marks job as canceled (called when the user aborts)
func (s *GenerationService) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return fmt.Errorf("job already completed")
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// Helper methods

func (s *GenerationService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *GenerationService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func newGenerateTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}
