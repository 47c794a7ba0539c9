package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/flagforge/play-api/internal/middleware"
)

func parseUUIDParam(c *fiber.Ctx, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(key))
	if err != nil {
		return uuid.Nil, errors.New("invalid " + key)
	}
	return id, nil
}

func parseBoolParam(c *fiber.Ctx, key string) (bool, error) {
	value, err := strconv.ParseBool(c.Params(key))
	if err != nil {
		return false, errors.New("invalid " + key)
	}
	return value, nil
}

func participantFromContext(c *fiber.Ctx) string {
	return middleware.GetParticipantID(c)
}
