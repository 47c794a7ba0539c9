package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/observability"
	"github.com/flagforge/play-api/internal/repository"
)

// LeaderboardService owns the cached global ranking: full recomputation,
// cached reads, and the ledger-based total reconciliation.
type LeaderboardService interface {
	Recalculate(ctx context.Context) error
	Public(ctx context.Context) ([]dto.RankEntry, error)
	Rank(ctx context.Context, participantID string) (dto.RankEntry, bool, error)
	ReconcileTotals(ctx context.Context) error
}

type leaderboardService struct {
	participants repository.ParticipantRepository
	playData     repository.PlayDataRepository
	config       PlayConfigService
	cache        *cache.Cache
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// NewLeaderboardService builds the leaderboard read/recalculation service.
func NewLeaderboardService(
	participants repository.ParticipantRepository,
	playData repository.PlayDataRepository,
	config PlayConfigService,
	cacheLayer *cache.Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) LeaderboardService {
	return &leaderboardService{
		participants: participants,
		playData:     playData,
		config:       config,
		cache:        cacheLayer,
		cacheTTL:     cacheTTL,
		logger:       logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Recalculate performs one full scan-and-sort of the visible participants and
// replaces the cached ranking. Expensive; only the recalculation worker and
// cold reads call it.
func (s *leaderboardService) Recalculate(ctx context.Context) error {
	started := time.Now()

	participants, err := s.participants.RankedVisible(ctx)
	if err != nil {
		return fmt.Errorf("failed to rank participants: %w", err)
	}

	ranks := make([]dto.RankEntry, 0, len(participants))
	for i, participant := range participants {
		ranks = append(ranks, dto.RankEntry{
			Position:      i + 1,
			ParticipantID: participant.ID,
			Name:          participant.Name,
			Points:        participant.Points,
			LatestSolve:   participant.LatestSolve,
		})
	}

	if err := s.cache.SetJSON(ctx, cache.Leaderboard(), ranks, s.cacheTTL); err != nil {
		return err
	}

	observability.LeaderboardRecalcs().Inc()
	s.logger.Info().
		Int("participants", len(ranks)).
		Dur("took", time.Since(started)).
		Msg("leaderboard recalculated")

	return nil
}

// Public returns the top entries of the cached ranking, bounded by the
// public-leaderboard-count configuration. A cold cache triggers one
// synchronous recomputation.
func (s *leaderboardService) Public(ctx context.Context) ([]dto.RankEntry, error) {
	ranks, err := s.cachedRanks(ctx)
	if err != nil {
		return nil, err
	}

	limit, err := s.config.PublicLeaderboardCount(ctx)
	if err != nil {
		return nil, err
	}
	if limit > len(ranks) {
		limit = len(ranks)
	}

	return ranks[:limit], nil
}

// Rank reports a participant's position in the cached ranking. Hidden
// participants are absent from the ranking but still get their accurate point
// total back, with position zero.
func (s *leaderboardService) Rank(ctx context.Context, participantID string) (dto.RankEntry, bool, error) {
	ranks, err := s.cachedRanks(ctx)
	if err != nil {
		return dto.RankEntry{}, false, err
	}

	for _, entry := range ranks {
		if entry.ParticipantID == participantID {
			return entry, true, nil
		}
	}

	participant, err := s.participants.GetByID(ctx, participantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RankEntry{}, false, ErrParticipantNotFound
	}
	if err != nil {
		return dto.RankEntry{}, false, err
	}

	return dto.RankEntry{
		ParticipantID: participant.ID,
		Name:          participant.Name,
		Points:        participant.Points,
		LatestSolve:   participant.LatestSolve,
	}, false, nil
}

// ReconcileTotals rebuilds the points ledger from the solve and hint usage
// tables and recomputes every aggregate from it, then drops the cached
// ranking. This is the idempotent repair path for partial batch application.
func (s *leaderboardService) ReconcileTotals(ctx context.Context) error {
	if err := s.playData.RebuildLedger(ctx); err != nil {
		return fmt.Errorf("failed to rebuild points ledger: %w", err)
	}

	if err := s.cache.Delete(ctx, cache.Leaderboard()); err != nil {
		return err
	}

	s.logger.Info().Msg("point totals reconciled from ledger")

	return s.Recalculate(ctx)
}

func (s *leaderboardService) cachedRanks(ctx context.Context) ([]dto.RankEntry, error) {
	var ranks []dto.RankEntry
	hit, err := s.cache.GetJSON(ctx, cache.Leaderboard(), &ranks)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
	}
	if hit {
		return ranks, nil
	}

	if err := s.Recalculate(ctx); err != nil {
		return nil, err
	}

	if _, err := s.cache.GetJSON(ctx, cache.Leaderboard(), &ranks); err != nil {
		return nil, err
	}

	return ranks, nil
}
