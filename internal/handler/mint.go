package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/pkg/response"
)

type MintHandler struct {
	service   *service.MintService
	validator *validator.Validate
}

func NewMintHandler(svc *service.MintService, v *validator.Validate) *MintHandler {
	return &MintHandler{service: svc, validator: v}
}

// Mint handles POST /api/mint
func (h *MintHandler) Mint(c *fiber.Ctx) error {
	var req model.MintRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Mint(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWalletNotConnected):
			return response.ValidationError(c, "Please connect your wallet to mint this track as an NFT", nil)
		case errors.Is(err, service.ErrNoTrack):
			return response.ValidationError(c, "No track to mint", nil)
		case errors.Is(err, service.ErrConversationNotFound):
			return response.NotFound(c, "Conversation not found")
		default:
			return response.ChainError(c, err.Error())
		}
	}

	return response.OK(c, result)
}

// Get handles GET /api/mint/:mintId
func (h *MintHandler) Get(c *fiber.Ctx) error {
	mintID := c.Params("mintId")
	if mintID == "" {
		return response.ValidationError(c, "Mint ID is required", nil)
	}

	result, err := h.service.Get(mintID)
	if err != nil {
		return response.NotFound(c, "Mint not found")
	}

	return response.OK(c, result)
}

// Reset handles POST /api/mint/:mintId/reset
func (h *MintHandler) Reset(c *fiber.Ctx) error {
	mintID := c.Params("mintId")
	if mintID == "" {
		return response.ValidationError(c, "Mint ID is required", nil)
	}

	result, err := h.service.Reset(mintID)
	if err != nil {
		if errors.Is(err, service.ErrMintNotFound) {
			return response.NotFound(c, "Mint not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.OK(c, result)
}
