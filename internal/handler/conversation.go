package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/music"
	"github.com/harmonygenie/api/internal/poller"
	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/pkg/response"
)

// ConversationHandler owns the chat endpoints. A user message may just chat
// with the agent, or, when it reads like a music request, also queue a
// generation job.
type ConversationHandler struct {
	conversations *service.ConversationService
	generation    *service.GenerationService
	tracker       *poller.Tracker
	validator     *validator.Validate
}

func NewConversationHandler(
	conversations *service.ConversationService,
	generation *service.GenerationService,
	tracker *poller.Tracker,
	v *validator.Validate,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		generation:    generation,
		tracker:       tracker,
		validator:     v,
	}
}

// Create handles POST /api/conversations
func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	conv := h.conversations.Create(c.Context())
	return response.Created(c, conv)
}

// Get handles GET /api/conversations/:conversationId
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")
	if conversationID == "" {
		return response.ValidationError(c, "Conversation ID is required", nil)
	}

	conv, err := h.conversations.Get(conversationID)
	if err != nil {
		return response.NotFound(c, "Conversation not found")
	}

	return response.OK(c, conv)
}

// SendMessage handles POST /api/conversations/:conversationId/messages.
// Returns 423 while a generation is in flight: the input stays locked until
// the current run reaches a terminal state.
func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")
	if conversationID == "" {
		return response.ValidationError(c, "Conversation ID is required", nil)
	}

	var req model.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.conversations.AppendUserMessage(conversationID, req.Text); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return response.NotFound(c, "Conversation not found")
		}
		if errors.Is(err, service.ErrGenerationBusy) {
			return response.Locked(c, "A generation is already in progress. Please wait for it to finish.")
		}
		return response.ServiceError(c, err.Error())
	}

	agentText, err := h.conversations.SendToAgent(c.Context(), req.Text)
	if err != nil {
		agentText = "I couldn't reach the chat agent right now, but I'll still try to generate your music."
		if appendErr := h.conversations.AppendAIMessage(conversationID, agentText); appendErr != nil {
			return response.ServiceError(c, appendErr.Error())
		}
	} else {
		if appendErr := h.conversations.AppendAIMessage(conversationID, agentText); appendErr != nil {
			return response.ServiceError(c, appendErr.Error())
		}
	}

	resp := model.SendMessageResponse{ConversationID: conversationID}

	if music.IsMusicRequest(req.Text) {
		job, jobErr := h.startGeneration(c, conversationID, req.Text, agentText)
		if jobErr != nil {
			return response.ServiceError(c, jobErr.Error())
		}
		resp.JobID = job.ID
	}

	conv, err := h.conversations.Get(conversationID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	resp.Messages = conv.Messages

	return response.OK(c, resp)
}

func (h *ConversationHandler) startGeneration(c *fiber.Ctx, conversationID, userText, agentText string) (*model.Job, error) {
	params := music.ExtractParams(userText, agentText)

	payload := &model.GenerationJobPayload{
		ConversationID: conversationID,
		UserText:       userText,
		AgentText:      agentText,
		Params:         params,
		Prompt:         music.BuildPrompt(userText, agentText),
		LyricsType:     music.ClassifyLyrics(params),
	}

	job, err := h.generation.StartGeneration(c.Context(), payload)
	if err != nil {
		return nil, err
	}

	if err := h.conversations.SetActiveJob(conversationID, job.ID); err != nil {
		return nil, err
	}
	if err := h.conversations.UpdateStatusLine(conversationID, "Music generation starting..."); err != nil {
		return nil, err
	}

	return job, nil
}

// Cancel handles POST /api/conversations/:conversationId/cancel
func (h *ConversationHandler) Cancel(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")
	if conversationID == "" {
		return response.ValidationError(c, "Conversation ID is required", nil)
	}

	jobID, err := h.conversations.ActiveJob(conversationID)
	if err != nil {
		return response.NotFound(c, "Conversation not found")
	}
	if jobID == "" {
		return response.ValidationError(c, "No generation in progress", nil)
	}

	canceled := h.tracker.Cancel(conversationID)
	if !canceled {
		// The job is queued but its poll loop has not started yet.
		if err := h.generation.CancelJob(c.Context(), jobID); err != nil {
			return response.ServiceError(c, err.Error())
		}
		h.conversations.ClearActiveJob(conversationID)
	}

	return response.OK(c, fiber.Map{
		"conversationId": conversationID,
		"jobId":          jobID,
		"canceled":       true,
	})
}
