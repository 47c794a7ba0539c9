package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/repository"
)

// Defaults used when a configuration row has never been written.
const (
	defaultSubmissionsAllowed     = true
	defaultChallengesLocked       = false
	defaultPublicLeaderboardCount = 10
)

// PlayConfigService reads the feature toggles consulted on every submission
// and applies administrative writes with invalidate-on-write caching.
type PlayConfigService interface {
	SubmissionsAllowed(ctx context.Context) (bool, error)
	ChallengesLocked(ctx context.Context) (bool, error)
	PublicLeaderboardCount(ctx context.Context) (int, error)
	SetSubmissionsAllowed(ctx context.Context, allowed bool) error
	SetChallengesLocked(ctx context.Context, locked bool) error
	SetPublicLeaderboardCount(ctx context.Context, count int) error
	All(ctx context.Context) (dto.PlayConfigurationResponse, error)
}

type playConfigService struct {
	repo   repository.ConfigurationRepository
	cache  *cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewPlayConfigService builds the configuration cache service.
func NewPlayConfigService(repo repository.ConfigurationRepository, cacheLayer *cache.Cache, ttl time.Duration, logger zerolog.Logger) PlayConfigService {
	return &playConfigService{
		repo:   repo,
		cache:  cacheLayer,
		ttl:    ttl,
		logger: logger.With().Str("component", "play_config_service").Logger(),
	}
}

func (s *playConfigService) SubmissionsAllowed(ctx context.Context) (bool, error) {
	return s.boolValue(ctx, models.ConfigSubmissionsAllowed, defaultSubmissionsAllowed)
}

func (s *playConfigService) ChallengesLocked(ctx context.Context) (bool, error) {
	return s.boolValue(ctx, models.ConfigChallengesLocked, defaultChallengesLocked)
}

func (s *playConfigService) PublicLeaderboardCount(ctx context.Context) (int, error) {
	raw, err := s.value(ctx, models.ConfigPublicLeaderboardCount, strconv.Itoa(defaultPublicLeaderboardCount))
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return defaultPublicLeaderboardCount, nil
	}

	return count, nil
}

func (s *playConfigService) SetSubmissionsAllowed(ctx context.Context, allowed bool) error {
	return s.write(ctx, models.ConfigSubmissionsAllowed, strconv.FormatBool(allowed))
}

func (s *playConfigService) SetChallengesLocked(ctx context.Context, locked bool) error {
	return s.write(ctx, models.ConfigChallengesLocked, strconv.FormatBool(locked))
}

func (s *playConfigService) SetPublicLeaderboardCount(ctx context.Context, count int) error {
	if count <= 0 {
		return fmt.Errorf("public leaderboard count must be positive")
	}

	return s.write(ctx, models.ConfigPublicLeaderboardCount, strconv.Itoa(count))
}

func (s *playConfigService) All(ctx context.Context) (dto.PlayConfigurationResponse, error) {
	allowed, err := s.SubmissionsAllowed(ctx)
	if err != nil {
		return dto.PlayConfigurationResponse{}, err
	}

	locked, err := s.ChallengesLocked(ctx)
	if err != nil {
		return dto.PlayConfigurationResponse{}, err
	}

	count, err := s.PublicLeaderboardCount(ctx)
	if err != nil {
		return dto.PlayConfigurationResponse{}, err
	}

	return dto.PlayConfigurationResponse{
		SubmissionsAllowed:     allowed,
		ChallengesLocked:       locked,
		PublicLeaderboardCount: count,
	}, nil
}

func (s *playConfigService) boolValue(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := s.value(ctx, key, strconv.FormatBool(fallback))
	if err != nil {
		return false, err
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}

	return value, nil
}

func (s *playConfigService) value(ctx context.Context, key, fallback string) (string, error) {
	cacheKey := cache.Configuration(key)

	var cached string
	if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to read configuration cache")
	}

	value, err := s.repo.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		value = fallback
	} else if err != nil {
		return "", fmt.Errorf("failed to read configuration %s: %w", key, err)
	}

	if err := s.cache.SetJSON(ctx, cacheKey, value, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store configuration cache")
	}

	return value, nil
}

// write persists the toggle and removes the cached entry in the same logical
// operation so in-flight evaluations observe the change immediately.
func (s *playConfigService) write(ctx context.Context, key, value string) error {
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", key, err)
	}

	if err := s.cache.Delete(ctx, cache.Configuration(key)); err != nil {
		return err
	}

	s.logger.Info().Str("key", key).Str("value", value).Msg("play configuration updated")

	return nil
}
