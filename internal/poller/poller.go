package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/model"
)

// Sentinel outcomes for a poll loop. Task failure and transport exhaustion
// wrap these so callers can classify with errors.Is.
var (
	// ErrTimeout means the task never reached a terminal status within the
	// attempt budget.
	ErrTimeout = errors.New("generation timed out")
	// ErrNoMedia means the task completed but the payload carried no audio
	// URL. Distinct from failure: the upstream considers the task done.
	ErrNoMedia = errors.New("task completed but no audio url in response")
	// ErrTaskFailed means the upstream reported a terminal failed status.
	ErrTaskFailed = errors.New("generation task failed")
	// ErrTransport means consecutive status checks failed at the transport
	// level and the retry budget ran out.
	ErrTransport = errors.New("status check retry budget exhausted")
)

// Checker is the one upstream operation the poll loop needs.
type Checker interface {
	CheckTask(ctx context.Context, taskID string) (*client.TaskRecord, error)
}

// ProgressFunc receives every observation as it happens: the 1-based attempt
// number and the normalized record. Called from the polling goroutine.
type ProgressFunc func(attempt int, record *client.TaskRecord)

// Config bounds a poll loop.
type Config struct {
	Interval    time.Duration // delay between status checks
	MaxAttempts int           // non-terminal observations before ErrTimeout
	RetryBudget int           // consecutive transport failures tolerated
}

// Poller drives a bounded status-check loop against the task API. Each Poll
// call is independent; a Poller is safe for concurrent use.
type Poller struct {
	checker Checker
	cfg     Config
}

func New(checker Checker, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 5
	}
	return &Poller{checker: checker, cfg: cfg}
}

// Poll checks the task until it reaches a terminal status or a budget runs
// out. The first check happens immediately; subsequent checks wait Interval.
// Transport errors consume the retry budget but not an attempt; any
// successful observation resets the budget. Returns the final record on
// completion with media, or a nil record and a classified error otherwise.
// Context cancellation stops the loop between checks with ctx.Err().
func (p *Poller) Poll(ctx context.Context, taskID string, onProgress ProgressFunc) (*client.TaskRecord, error) {
	retriesLeft := p.cfg.RetryBudget

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := p.checker.CheckTask(ctx, taskID)
		if err != nil {
			retriesLeft--
			log.Printf("[Poller] Task %s check failed (retries left %d): %v", taskID, retriesLeft, err)
			if retriesLeft <= 0 {
				return nil, fmt.Errorf("%w: %v", ErrTransport, err)
			}
			// A transport failure is not an observation.
			attempt--
			if err := p.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}
		retriesLeft = p.cfg.RetryBudget

		if onProgress != nil {
			onProgress(attempt, record)
		}

		switch record.Status {
		case model.TaskStatusCompleted:
			if record.Output == nil || record.Output.AudioURL == "" {
				return nil, ErrNoMedia
			}
			return record, nil
		case model.TaskStatusFailed:
			if record.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrTaskFailed, record.Error)
			}
			return nil, ErrTaskFailed
		}

		if attempt < p.cfg.MaxAttempts {
			if err := p.wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	return nil, ErrTimeout
}

func (p *Poller) wait(ctx context.Context) error {
	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
