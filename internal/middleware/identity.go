package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/play-api/internal/utils"
)

// ParticipantHeader carries the caller identity resolved by the gateway in
// front of this service.
const ParticipantHeader = "X-Participant-ID"

// Participant requires a participant identity on the request and binds it to
// the request locals.
func Participant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(ParticipantHeader))
		if id == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "participant identity required")
		}

		c.Locals("participant_id", id)

		return c.Next()
	}
}

// GetParticipantID returns the participant identity bound to the request.
func GetParticipantID(c *fiber.Ctx) string {
	if value := c.Locals("participant_id"); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
