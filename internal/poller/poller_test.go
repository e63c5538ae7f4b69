package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/model"
)

// scriptedChecker returns each response in order, repeating the last one.
type scriptedChecker struct {
	mu        sync.Mutex
	responses []checkResponse
	calls     int
}

type checkResponse struct {
	record *client.TaskRecord
	err    error
}

func (c *scriptedChecker) CheckTask(ctx context.Context, taskID string) (*client.TaskRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return c.responses[idx].record, c.responses[idx].err
}

func (c *scriptedChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func pendingRecord(id string) *client.TaskRecord {
	return &client.TaskRecord{TaskID: id, Status: model.TaskStatusPending}
}

func processingRecord(id string) *client.TaskRecord {
	return &client.TaskRecord{TaskID: id, Status: model.TaskStatusProcessing}
}

func completedRecord(id, url string) *client.TaskRecord {
	return &client.TaskRecord{
		TaskID: id,
		Status: model.TaskStatusCompleted,
		Output: &model.TrackOutput{AudioURL: url, Title: "Generated Song"},
	}
}

func newTestPoller(checker Checker) *Poller {
	return New(checker, Config{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
		RetryBudget: 3,
	})
}

func TestPoll_CompletesWithMedia(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{record: pendingRecord("t")},
		{record: processingRecord("t")},
		{record: completedRecord("t", "https://x/y.mp3")},
	}}

	var observed []model.TaskStatus
	record, err := newTestPoller(checker).Poll(context.Background(), "t", func(attempt int, rec *client.TaskRecord) {
		observed = append(observed, rec.Status)
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if record.Output.AudioURL != "https://x/y.mp3" {
		t.Errorf("unexpected audio url %q", record.Output.AudioURL)
	}
	if len(observed) != 3 {
		t.Errorf("expected 3 observations, got %d", len(observed))
	}
	if checker.callCount() != 3 {
		t.Errorf("expected exactly 3 checks, got %d", checker.callCount())
	}
}

func TestPoll_CompletedWithoutMedia(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{record: &client.TaskRecord{TaskID: "t", Status: model.TaskStatusCompleted}},
	}}

	_, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if !errors.Is(err, ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}
}

func TestPoll_TaskFailedCarriesServerError(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{record: &client.TaskRecord{TaskID: "t", Status: model.TaskStatusFailed, Error: "quota exceeded"}},
	}}

	_, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("expected ErrTaskFailed, got %v", err)
	}
	if got := err.Error(); got != "generation task failed: quota exceeded" {
		t.Errorf("expected server error in message, got %q", got)
	}
}

func TestPoll_TimesOutAfterMaxAttempts(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{record: pendingRecord("t")},
	}}

	_, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if checker.callCount() != 10 {
		t.Errorf("expected 10 checks, got %d", checker.callCount())
	}
}

func TestPoll_TransientErrorsDoNotConsumeAttempts(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{record: completedRecord("t", "https://x/y.mp3")},
	}}

	record, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if err != nil {
		t.Fatalf("expected recovery from transient errors, got %v", err)
	}
	if record.Status != model.TaskStatusCompleted {
		t.Errorf("expected completed, got %q", record.Status)
	}
}

func TestPoll_TransportBudgetExhausted(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{err: errors.New("connection reset")},
	}}

	_, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if checker.callCount() != 3 {
		t.Errorf("expected checks up to the retry budget, got %d", checker.callCount())
	}
}

func TestPoll_SuccessResetsRetryBudget(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{err: errors.New("reset")},
		{err: errors.New("reset")},
		{record: pendingRecord("t")},
		{err: errors.New("reset")},
		{err: errors.New("reset")},
		{record: completedRecord("t", "https://x/y.mp3")},
	}}

	_, err := newTestPoller(checker).Poll(context.Background(), "t", nil)
	if err != nil {
		t.Fatalf("expected budget reset after a good observation, got %v", err)
	}
}

func TestPoll_Cancellation(t *testing.T) {
	checker := &scriptedChecker{responses: []checkResponse{
		{record: pendingRecord("t")},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	p := New(checker, Config{Interval: time.Hour, MaxAttempts: 10, RetryBudget: 3})

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(ctx, "t", nil)
		done <- err
	}()

	// Let the first check land, then cancel mid-wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poll did not stop after cancellation")
	}
}

func TestTracker_OneLivePollPerConversation(t *testing.T) {
	tracker := NewTracker()

	ctx, err := tracker.Begin(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("first begin failed: %v", err)
	}

	if _, err := tracker.Begin(context.Background(), "conv-1"); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	if !tracker.IsActive("conv-1") {
		t.Error("expected conv-1 active")
	}

	if !tracker.Cancel("conv-1") {
		t.Error("expected cancel to find the loop")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("expected tracked context to be canceled")
	}

	if tracker.IsActive("conv-1") {
		t.Error("expected conv-1 released after cancel")
	}

	// Slot is free again.
	if _, err := tracker.Begin(context.Background(), "conv-1"); err != nil {
		t.Fatalf("expected begin after cancel to succeed: %v", err)
	}
	tracker.End("conv-1")
	if tracker.IsActive("conv-1") {
		t.Error("expected conv-1 released after end")
	}
}

func TestTracker_ParentCancellationPropagates(t *testing.T) {
	tracker := NewTracker()

	parent, cancel := context.WithCancel(context.Background())
	ctx, err := tracker.Begin(parent, "conv-1")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	cancel()
	select {
	case <-ctx.Done():
	default:
		t.Error("expected the tracked context to follow its parent")
	}
}

func TestTracker_CancelUnknown(t *testing.T) {
	tracker := NewTracker()
	if tracker.Cancel("nope") {
		t.Error("expected cancel of unknown conversation to report false")
	}
}
