package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/wallet"
	"github.com/harmonygenie/api/pkg/response"
)

type WalletHandler struct {
	store     *wallet.Store
	validator *validator.Validate
}

func NewWalletHandler(store *wallet.Store, v *validator.Validate) *WalletHandler {
	return &WalletHandler{store: store, validator: v}
}

// State handles GET /api/wallet
func (h *WalletHandler) State(c *fiber.Ctx) error {
	return response.OK(c, h.store.Get())
}

// Connect handles POST /api/wallet/connect
func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	var req model.WalletConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.store.Connect(req.Address, req.Balance))
}

// Disconnect handles POST /api/wallet/disconnect
func (h *WalletHandler) Disconnect(c *fiber.Ctx) error {
	return response.OK(c, h.store.Disconnect())
}
