package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/middleware"
	"github.com/flagforge/play-api/internal/service"
	"github.com/flagforge/play-api/internal/utils"
)

// LeaderboardHandler serves the cached ranking reads.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler builds a leaderboard handler instance.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The public
// listing needs no identity; the rank lookup does.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("/leaderboard", h.public)
	router.Get("/me/rank", middleware.Participant(), h.rank)
}

func (h *LeaderboardHandler) public(c *fiber.Ctx) error {
	ranks, err := h.service.Public(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard retrieved", ranks)
}

func (h *LeaderboardHandler) rank(c *fiber.Ctx) error {
	entry, ranked, err := h.service.Rank(c.Context(), participantFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	message := "rank retrieved"
	if !ranked {
		message = "participant is not on the public leaderboard"
	}

	return utils.SendSuccess(c, message, entry)
}

func (h *LeaderboardHandler) handleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrParticipantNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "participant not found")
	}

	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
