package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/music"
	"github.com/harmonygenie/api/internal/poller"
	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/internal/websocket"
)

// GenerationWorker drives one generation job end to end: submit the task,
// announce it in the transcript, poll to a terminal state, and publish the
// outcome.
type GenerationWorker struct {
	generationService *service.GenerationService
	conversations     *service.ConversationService
	generator         client.MusicGenerator
	storage           client.StorageClient
	hub               *websocket.Hub
	poller            *poller.Poller
	tracker           *poller.Tracker
	warmup            time.Duration
}

func NewGenerationWorker(
	generationService *service.GenerationService,
	conversations *service.ConversationService,
	generator client.MusicGenerator,
	storage client.StorageClient,
	hub *websocket.Hub,
	p *poller.Poller,
	tracker *poller.Tracker,
	warmup time.Duration,
) *GenerationWorker {
	return &GenerationWorker{
		generationService: generationService,
		conversations:     conversations,
		generator:         generator,
		storage:           storage,
		hub:               hub,
		poller:            p,
		tracker:           tracker,
		warmup:            warmup,
	}
}

// ProcessTask handles generation task processing
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting generation job: %s", jobID)

	var payload model.GenerationJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, payload.ConversationID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal generation payload: %w", err)
	}

	// One live poll per conversation. The cancel endpoint aborts through
	// the tracked context; deriving from the handler context lets a server
	// shutdown interrupt the loop too.
	pollCtx, err := w.tracker.Begin(ctx, payload.ConversationID)
	if err != nil {
		w.failJob(ctx, jobID, payload.ConversationID, "A generation is already in progress for this conversation")
		return err
	}
	defer w.tracker.End(payload.ConversationID)
	defer w.conversations.ClearActiveJob(payload.ConversationID)

	if w.generator == nil || !isConfigured(w.generator) {
		return w.processWithMock(pollCtx, jobID, &payload)
	}

	return w.processWithPiAPI(pollCtx, jobID, &payload)
}

// processWithPiAPI runs a real generation against the task API
func (w *GenerationWorker) processWithPiAPI(ctx context.Context, jobID string, payload *model.GenerationJobPayload) error {
	convID := payload.ConversationID

	taskID, err := w.generator.CreateTask(ctx, &client.CreateTaskRequest{
		Prompt:           payload.Prompt,
		Tags:             joinTags(payload.Params.Tags),
		Title:            music.DeriveTitle(payload.Params),
		MakeInstrumental: payload.Params.Instrumental,
		LyricsType:       payload.LyricsType,
	})
	if err != nil {
		w.failJob(ctx, jobID, convID, fmt.Sprintf("Music generation failed: %v", err))
		return err
	}

	if err := w.generationService.MarkRunning(ctx, jobID, taskID); err != nil {
		log.Printf("Failed to mark job running: %v", err)
	}
	if err := w.conversations.AnnounceTask(convID, taskID); err != nil {
		log.Printf("Failed to announce task: %v", err)
	}
	w.hub.BroadcastStatus(convID, taskID, model.TaskStatusPending, "Task created: "+taskID, 0)

	// Give the backend a moment to persist the task before the first check.
	if err := w.sleep(ctx, w.warmup); err != nil {
		return w.handleCancel(jobID, convID)
	}

	record, err := w.poller.Poll(ctx, taskID, func(attempt int, rec *client.TaskRecord) {
		statusText := fmt.Sprintf("Music generation %s...", rec.Status)
		if err := w.conversations.UpdateStatusLine(convID, statusText); err != nil {
			log.Printf("Failed to update status line: %v", err)
		}
		if err := w.generationService.UpdateJobProgress(ctx, jobID, attempt, statusText); err != nil {
			log.Printf("Failed to update progress: %v", err)
		}
		w.hub.BroadcastStatus(convID, taskID, rec.Status, statusText, attempt)
	})
	if err != nil {
		return w.handlePollFailure(ctx, jobID, convID, err)
	}

	track := trackFrom(record, payload.Params)
	return w.completeJob(ctx, jobID, convID, track)
}

// processWithMock simulates a generation when no API key is configured
func (w *GenerationWorker) processWithMock(ctx context.Context, jobID string, payload *model.GenerationJobPayload) error {
	convID := payload.ConversationID
	taskID := "mock-" + jobID

	if err := w.generationService.MarkRunning(ctx, jobID, taskID); err != nil {
		log.Printf("Failed to mark job running: %v", err)
	}
	if err := w.conversations.AnnounceTask(convID, taskID); err != nil {
		log.Printf("Failed to announce task: %v", err)
	}

	steps := []struct {
		status   model.TaskStatus
		duration time.Duration
	}{
		{model.TaskStatusPending, 2 * time.Second},
		{model.TaskStatusProcessing, 3 * time.Second},
		{model.TaskStatusProcessing, 3 * time.Second},
	}

	for i, step := range steps {
		if err := w.sleep(ctx, step.duration); err != nil {
			return w.handleCancel(jobID, convID)
		}

		statusText := fmt.Sprintf("Music generation %s...", step.status)
		if err := w.conversations.UpdateStatusLine(convID, statusText); err != nil {
			log.Printf("Failed to update status line: %v", err)
		}
		if err := w.generationService.UpdateJobProgress(ctx, jobID, i+1, statusText); err != nil {
			log.Printf("Failed to update progress: %v", err)
		}
		w.hub.BroadcastStatus(convID, taskID, step.status, statusText, i+1)
	}

	track := &model.TrackData{
		URL: fmt.Sprintf("https://cdn.harmonygenie.app/tracks/mock/%s.mp3", jobID),
		Metadata: model.TrackMetadata{
			Title: music.DeriveTitle(payload.Params),
			Genre: genreOrDefault(payload.Params),
			Mood:  payload.Params.Mood,
		},
	}

	log.Printf("Generation job %s completed (mock)", jobID)
	return w.completeJob(ctx, jobID, convID, track)
}

func (w *GenerationWorker) completeJob(ctx context.Context, jobID, convID string, track *model.TrackData) error {
	if err := w.generationService.CompleteJob(ctx, jobID, track); err != nil {
		w.failJob(ctx, jobID, convID, "Failed to save result")
		return err
	}

	if err := w.conversations.SetTrack(convID, track); err != nil {
		log.Printf("Failed to attach track: %v", err)
	}
	if err := w.conversations.AppendAIMessage(convID, "Your track is ready! Would you like to mint it as an NFT?"); err != nil {
		log.Printf("Failed to append ready message: %v", err)
	}

	// Best-effort archive; the track URL still works without it.
	if w.storage != nil {
		if _, err := w.storage.ArchiveTrack(ctx, convID, track); err != nil {
			log.Printf("Failed to archive track: %v", err)
		}
	}

	w.hub.BroadcastComplete(convID, track)
	log.Printf("Generation job %s completed", jobID)
	return nil
}

func (w *GenerationWorker) handlePollFailure(ctx context.Context, jobID, convID string, err error) error {
	if errors.Is(err, context.Canceled) {
		return w.handleCancel(jobID, convID)
	}

	var msg string
	switch {
	case errors.Is(err, poller.ErrNoMedia):
		msg = "The track finished but no audio was returned. Please try generating again."
	case errors.Is(err, poller.ErrTimeout):
		msg = "Music generation timed out. Please try again."
	case errors.Is(err, poller.ErrTransport):
		msg = "Lost contact with the music generation service. Please try again."
	case errors.Is(err, poller.ErrTaskFailed):
		msg = fmt.Sprintf("Music generation failed: %v", err)
	default:
		msg = fmt.Sprintf("Music generation failed: %v", err)
	}

	w.failJob(ctx, jobID, convID, msg)
	return err
}

func (w *GenerationWorker) handleCancel(jobID, convID string) error {
	ctx := context.Background()
	if err := w.generationService.CancelJob(ctx, jobID); err != nil {
		log.Printf("Failed to mark job canceled: %v", err)
	}
	if err := w.conversations.AppendAIMessage(convID, "Music generation was canceled."); err != nil {
		log.Printf("Failed to append cancel message: %v", err)
	}
	w.hub.BroadcastError(convID, "GENERATION_CANCELED", "Music generation was canceled")
	log.Printf("Generation job %s canceled", jobID)
	return nil
}

func (w *GenerationWorker) failJob(ctx context.Context, jobID, convID, errMsg string) {
	if err := w.generationService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	if convID != "" {
		if err := w.conversations.AppendAIMessage(convID, errMsg); err != nil {
			log.Printf("Failed to append failure message: %v", err)
		}
		w.hub.BroadcastError(convID, "GENERATION_FAILED", errMsg)
	}
}

func (w *GenerationWorker) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func trackFrom(record *client.TaskRecord, params model.GenerationParams) *model.TrackData {
	title := record.Output.Title
	if title == "" {
		title = "Generated Song"
	}

	return &model.TrackData{
		URL: record.Output.AudioURL,
		Metadata: model.TrackMetadata{
			Title:  title,
			Genre:  genreOrDefault(params),
			Mood:   params.Mood,
			Lyrics: record.Output.Lyrics,
		},
	}
}

func genreOrDefault(params model.GenerationParams) string {
	if params.Genre != "" {
		return params.Genre
	}
	if len(params.Tags) > 0 {
		return params.Tags[0]
	}
	return "AI Music"
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func isConfigured(g client.MusicGenerator) bool {
	type configured interface{ IsConfigured() bool }
	if c, ok := g.(configured); ok {
		return c.IsConfigured()
	}
	return true
}
