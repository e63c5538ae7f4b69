package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/model"
)

// ChatAgent defines the interface for the conversational agent backend
type ChatAgent interface {
	GetAgents(ctx context.Context) ([]model.AgentInfo, error)
	SendMessage(ctx context.Context, text string) (string, error)
}

// AgentClient talks to an Eliza-style agent server. The reply body is a
// loosely-typed boundary: either an array of {text, user} turns or a single
// {content:{text}} object, and both must be accepted.
type AgentClient struct {
	httpClient     *http.Client
	baseURL        string
	defaultAgentID string
}

type agentsResponse struct {
	Agents []model.AgentInfo `json:"agents"`
}

type agentTurn struct {
	Text string `json:"text"`
	User string `json:"user"`
}

type agentContentReply struct {
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

// NewAgentClient creates a new chat agent client
func NewAgentClient(cfg *config.AgentConfig) *AgentClient {
	return &AgentClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:        cfg.BaseURL,
		defaultAgentID: cfg.DefaultAgentID,
	}
}

// GetAgents lists the agents registered on the chat backend
func (c *AgentClient) GetAgents(ctx context.Context) ([]model.AgentInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var agents agentsResponse
	if err := json.Unmarshal(respBody, &agents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agents response: %w", err)
	}

	return agents.Agents, nil
}

// SendMessage posts a user message to the first registered agent and
// returns the agent's reply text. When agent discovery fails the
// configured default agent id is used instead.
func (c *AgentClient) SendMessage(ctx context.Context, text string) (string, error) {
	agentID := c.defaultAgentID
	if agents, err := c.GetAgents(ctx); err != nil {
		log.Printf("[Agent] Could not list agents, using default %s: %v", agentID, err)
	} else if len(agents) > 0 {
		agentID = agents[0].ID
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("user", "user")

	endpoint := fmt.Sprintf("%s/%s/message", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Printf("[Agent] → POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	reply, err := parseAgentReply(respBody)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// parseAgentReply accepts both known reply shapes.
func parseAgentReply(body []byte) (string, error) {
	var turns []agentTurn
	if err := json.Unmarshal(body, &turns); err == nil {
		var parts []string
		for _, turn := range turns {
			if turn.Text != "" {
				parts = append(parts, turn.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
		return "", fmt.Errorf("empty agent reply")
	}

	var reply agentContentReply
	if err := json.Unmarshal(body, &reply); err == nil && reply.Content.Text != "" {
		return reply.Content.Text, nil
	}

	return "", fmt.Errorf("unrecognized agent reply format: %s", string(body))
}

// IsConfigured returns true if the client has valid configuration
func (c *AgentClient) IsConfigured() bool {
	return c.baseURL != ""
}
