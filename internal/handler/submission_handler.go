package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/service"
	"github.com/flagforge/play-api/internal/utils"
)

// SubmissionHandler manages the flag submission endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/:challengeID/submit", h.submit)
	router.Get("/:challengeID/status", h.status)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	challengeID, err := parseUUIDParam(c, "challengeID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	verdict, err := h.service.Submit(c.Context(), participantFromContext(c), challengeID, payload.Value)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission evaluated", dto.SubmitResponse{Verdict: verdict.String()})
}

func (h *SubmissionHandler) status(c *fiber.Ctx) error {
	challengeID, err := parseUUIDParam(c, "challengeID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.ChallengeStatus(c.Context(), participantFromContext(c), challengeID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "challenge status retrieved", status)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrParticipantNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "participant not found")
	case errors.Is(err, service.ErrChallengeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
	case errors.Is(err, service.ErrNoChallengeFlags):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "challenge has no flags configured")
	case errors.Is(err, service.ErrEmptyValue), errors.Is(err, service.ErrValueTooLong):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAnotherProcessRunning):
		return utils.SendError(c, fiber.StatusTooManyRequests, "another submission is being processed, retry shortly")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
