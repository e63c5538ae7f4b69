package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/harmonygenie/api/internal/auth"
	"github.com/harmonygenie/api/pkg/response"
)

// AuthHandler issues guest session tokens. There are no accounts; the token
// gives each browser session a stable identity for rate limiting.
type AuthHandler struct {
	jwtSecret  string
	expiration time.Duration
}

func NewAuthHandler(jwtSecret string, expirationHours int) *AuthHandler {
	return &AuthHandler{
		jwtSecret:  jwtSecret,
		expiration: time.Duration(expirationHours) * time.Hour,
	}
}

// Session handles POST /auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	sessionID := uuid.New().String()

	token, err := auth.GenerateSessionToken(sessionID, h.jwtSecret, h.expiration)
	if err != nil {
		return response.ServiceError(c, "Failed to issue session token")
	}

	return response.Created(c, fiber.Map{
		"sessionId": sessionID,
		"token":     token,
		"expiresAt": time.Now().Add(h.expiration).UTC(),
	})
}
