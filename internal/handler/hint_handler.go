package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/service"
	"github.com/flagforge/play-api/internal/utils"
)

// HintHandler manages the hint reveal endpoint.
type HintHandler struct {
	service service.HintService
	logger  zerolog.Logger
}

// NewHintHandler builds a hint handler instance.
func NewHintHandler(service service.HintService, logger zerolog.Logger) *HintHandler {
	return &HintHandler{
		service: service,
		logger:  logger.With().Str("component", "hint_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *HintHandler) Register(router fiber.Router) {
	router.Post("/:hintID", h.use)
}

func (h *HintHandler) use(c *fiber.Ctx) error {
	hintID, err := parseUUIDParam(c, "hintID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	hint, err := h.service.UseHint(c.Context(), participantFromContext(c), hintID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "hint revealed", hint)
}

func (h *HintHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrHintNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "hint not found")
	case errors.Is(err, service.ErrHintsNotAllowed):
		return utils.SendError(c, fiber.StatusForbidden, "hints are not available right now")
	case errors.Is(err, service.ErrChallengeSolvedByUser):
		return utils.SendError(c, fiber.StatusConflict, "challenge already solved")
	case errors.Is(err, service.ErrAnotherProcessRunning):
		return utils.SendError(c, fiber.StatusTooManyRequests, "another request for this challenge is being processed, retry shortly")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
