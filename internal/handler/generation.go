package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/pkg/response"
)

type GenerationHandler struct {
	service *service.GenerationService
}

func NewGenerationHandler(svc *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{service: svc}
}

// TaskStatus handles GET /api/generation/status/:taskId. Checks the
// upstream task API immediately and returns the normalized record.
func (h *GenerationHandler) TaskStatus(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	result, err := h.service.CheckTask(c.Context(), taskID)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}

// JobStatus handles GET /api/generation/jobs/:jobId
func (h *GenerationHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/generation/result/:jobId
func (h *GenerationHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job not completed" {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
