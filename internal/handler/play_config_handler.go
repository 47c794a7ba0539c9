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

// PlayConfigHandler manages the administrative endpoints: feature toggles,
// forced recalculation, total reconciliation, and participant data removal.
type PlayConfigHandler struct {
	config      service.PlayConfigService
	leaderboard service.LeaderboardService
	playData    service.PlayDataService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewPlayConfigHandler builds an admin handler instance.
func NewPlayConfigHandler(
	config service.PlayConfigService,
	leaderboard service.LeaderboardService,
	playData service.PlayDataService,
	validator *validator.Validate,
	logger zerolog.Logger,
) *PlayConfigHandler {
	return &PlayConfigHandler{
		config:      config,
		leaderboard: leaderboard,
		playData:    playData,
		validator:   validator,
		logger:      logger.With().Str("component", "play_config_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *PlayConfigHandler) Register(router fiber.Router) {
	router.Get("/configurations", h.all)
	router.Put("/configurations/submissions-allowed/:value", h.setSubmissionsAllowed)
	router.Put("/configurations/challenges-locked/:value", h.setChallengesLocked)
	router.Put("/configurations/leaderboard-count", h.setLeaderboardCount)
	router.Post("/recalculate", h.recalculate)
	router.Post("/reconcile", h.reconcile)
	router.Delete("/participants/:participantID/data", h.clearPlayData)
	router.Put("/participants/:participantID/hidden/:value", h.setHidden)
}

func (h *PlayConfigHandler) all(c *fiber.Ctx) error {
	configuration, err := h.config.All(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "configurations retrieved", configuration)
}

func (h *PlayConfigHandler) setSubmissionsAllowed(c *fiber.Ctx) error {
	value, err := parseBoolParam(c, "value")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.config.SetSubmissionsAllowed(c.Context(), value); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions-allowed updated", nil)
}

func (h *PlayConfigHandler) setChallengesLocked(c *fiber.Ctx) error {
	value, err := parseBoolParam(c, "value")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.config.SetChallengesLocked(c.Context(), value); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "challenges-locked updated", nil)
}

func (h *PlayConfigHandler) setLeaderboardCount(c *fiber.Ctx) error {
	var payload dto.SetLeaderboardCountRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.config.SetPublicLeaderboardCount(c.Context(), payload.Count); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard count updated", nil)
}

func (h *PlayConfigHandler) recalculate(c *fiber.Ctx) error {
	if err := h.leaderboard.Recalculate(c.Context()); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard recalculated", nil)
}

func (h *PlayConfigHandler) reconcile(c *fiber.Ctx) error {
	if err := h.leaderboard.ReconcileTotals(c.Context()); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "point totals reconciled", nil)
}

func (h *PlayConfigHandler) clearPlayData(c *fiber.Ctx) error {
	participantID := c.Params("participantID")
	if participantID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "participantID is required")
	}

	if err := h.playData.ClearPlayData(c.Context(), participantID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "play data cleared", nil)
}

func (h *PlayConfigHandler) setHidden(c *fiber.Ctx) error {
	participantID := c.Params("participantID")
	if participantID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "participantID is required")
	}
	value, err := parseBoolParam(c, "value")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.playData.SetHidden(c.Context(), participantID, value); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "participant visibility updated", nil)
}

func (h *PlayConfigHandler) handleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrParticipantNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "participant not found")
	}

	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
