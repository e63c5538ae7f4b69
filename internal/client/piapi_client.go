package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/model"
)

// MusicGenerator defines the interface for music generation operations
type MusicGenerator interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (string, error)
	CheckTask(ctx context.Context, taskID string) (*TaskRecord, error)
}

// PiAPIClient implements MusicGenerator for the PiAPI task API
type PiAPIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// CreateTaskRequest represents a music generation submission
type CreateTaskRequest struct {
	Prompt           string
	NegativeTags     string
	Tags             string
	Title            string
	MakeInstrumental bool
	LyricsType       model.LyricsType
}

type createTaskBody struct {
	Model    string          `json:"model"`
	TaskType string          `json:"task_type"`
	Input    createTaskInput `json:"input"`
}

type createTaskInput struct {
	GPTDescriptionPrompt string `json:"gpt_description_prompt"`
	NegativeTags         string `json:"negative_tags"`
	Tags                 string `json:"tags"`
	Title                string `json:"title"`
	MakeInstrumental     bool   `json:"make_instrumental"`
	LyricsType           string `json:"lyrics_type"`
}

// NewPiAPIClient creates a new PiAPI client
func NewPiAPIClient(cfg *config.PiAPIConfig) *PiAPIClient {
	return &PiAPIClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// CreateTask submits a generation task and returns the upstream task id.
// The task id can arrive under several nestings depending on the API
// version, so extraction goes through the same layered fallbacks as
// status payloads.
func (c *PiAPIClient) CreateTask(ctx context.Context, req *CreateTaskRequest) (string, error) {
	lyricsType := req.LyricsType
	if lyricsType == "" {
		lyricsType = model.LyricsTypeGenerate
	}

	body := createTaskBody{
		Model:    c.model,
		TaskType: "generate_music",
		Input: createTaskInput{
			GPTDescriptionPrompt: req.Prompt,
			NegativeTags:         req.NegativeTags,
			Tags:                 req.Tags,
			Title:                req.Title,
			MakeInstrumental:     req.MakeInstrumental,
			LyricsType:           string(lyricsType),
		},
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/task", body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("piapi error (status %d): %s", status, string(respBody))
	}

	taskID := ExtractTaskID(respBody)
	if taskID == "" {
		log.Printf("[PiAPI] ✗ no task id in create response: %s", string(respBody))
		return "", fmt.Errorf("no task id returned from piapi")
	}

	log.Printf("[PiAPI] Task created: %s", taskID)
	return taskID, nil
}

// CheckTask fetches the current status payload for a task and normalizes it.
// A 404 is treated as a pending observation (the backend may not have
// persisted the task yet). Parse problems are absorbed by the normalizer;
// only transport-level failures return an error.
func (c *PiAPIClient) CheckTask(ctx context.Context, taskID string) (*TaskRecord, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, "/task/"+taskID, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		log.Printf("[PiAPI] Task %s not found, treating as pending", taskID)
		return &TaskRecord{
			TaskID: taskID,
			Status: model.TaskStatusPending,
			Error:  fmt.Sprintf("task not found: %s", string(respBody)),
		}, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("piapi error (status %d): %s", status, string(respBody))
	}

	return Normalize(taskID, respBody), nil
}

// do executes a request with the API key header and returns the raw body.
func (c *PiAPIClient) do(ctx context.Context, method, endpoint string, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	log.Printf("[PiAPI] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[PiAPI] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PiAPI] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[PiAPI] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	return respBody, resp.StatusCode, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *PiAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}
