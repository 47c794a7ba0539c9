package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/play-api/internal/config"
	"github.com/flagforge/play-api/internal/handler"
	"github.com/flagforge/play-api/internal/middleware"
	"github.com/flagforge/play-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler  *handler.SubmissionHandler
	HintHandler        *handler.HintHandler
	LeaderboardHandler *handler.LeaderboardHandler
	PlayConfigHandler  *handler.PlayConfigHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	play := api.Group("/play")

	if deps.SubmissionHandler != nil {
		challenges := play.Group("/challenges", middleware.Participant())
		deps.SubmissionHandler.Register(challenges)
	}

	if deps.HintHandler != nil {
		hints := play.Group("/hints", middleware.Participant())
		deps.HintHandler.Register(hints)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(play)
	}

	// Administrative surface; the gateway restricts who reaches it.
	if deps.PlayConfigHandler != nil {
		deps.PlayConfigHandler.Register(play)
	}
}
