package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/repository"
)

// RecalcSignaler coalesces leaderboard recalculation requests; Signal never
// blocks.
type RecalcSignaler interface {
	Signal()
}

// PlayDataService covers the administrative mutations on participant play
// data: clearing it and toggling leaderboard visibility.
type PlayDataService interface {
	ClearPlayData(ctx context.Context, participantID string) error
	SetHidden(ctx context.Context, participantID string, hidden bool) error
}

type playDataService struct {
	participants repository.ParticipantRepository
	playData     repository.PlayDataRepository
	cache        *cache.Cache
	recalc       RecalcSignaler
	logger       zerolog.Logger
}

// NewPlayDataService builds the play data administration service.
func NewPlayDataService(
	participants repository.ParticipantRepository,
	playData repository.PlayDataRepository,
	cacheLayer *cache.Cache,
	recalc RecalcSignaler,
	logger zerolog.Logger,
) PlayDataService {
	return &playDataService{
		participants: participants,
		playData:     playData,
		cache:        cacheLayer,
		recalc:       recalc,
		logger:       logger.With().Str("component", "play_data_service").Logger(),
	}
}

// ClearPlayData removes every play record of the participant and invalidates
// all fast-path entries that were reconstructed from those rows.
func (s *playDataService) ClearPlayData(ctx context.Context, participantID string) error {
	exists, err := s.participants.Exists(ctx, participantID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrParticipantNotFound
	}

	if err := s.playData.ClearForParticipant(ctx, participantID); err != nil {
		return fmt.Errorf("failed to clear play data: %w", err)
	}

	if err := s.cache.DeletePattern(ctx, cache.PairPattern(participantID)); err != nil {
		return err
	}
	// The usage flags must go too, or previously used hints stay free after
	// their usage rows were deleted.
	if err := s.cache.DeletePattern(ctx, cache.HintPattern(participantID)); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.ParticipantStats(participantID), cache.Leaderboard()); err != nil {
		return err
	}

	s.recalc.Signal()
	s.logger.Info().Str("participant_id", participantID).Msg("play data cleared")

	return nil
}

// SetHidden toggles the public leaderboard visibility flag. The participant
// keeps accruing points either way.
func (s *playDataService) SetHidden(ctx context.Context, participantID string, hidden bool) error {
	if _, err := s.participants.GetByID(ctx, participantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	if err := s.participants.SetHidden(ctx, participantID, hidden); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, cache.Leaderboard()); err != nil {
		return err
	}

	s.recalc.Signal()

	return nil
}
