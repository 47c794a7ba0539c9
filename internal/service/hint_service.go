package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/buffer"
	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/guard"
	"github.com/flagforge/play-api/internal/repository"
)

// Hint path errors.
var (
	ErrHintNotFound          = errors.New("hint not found")
	ErrHintsNotAllowed       = errors.New("hints are not available while submissions are disabled")
	ErrChallengeSolvedByUser = errors.New("challenge already solved")
)

// hintUsedTTL bounds the fast-path usage flag. The durable usage row is the
// authority; an expired flag just costs one extra lookup.
const hintUsedTTL = time.Hour

// HintService reveals hints and applies their one-time point deduction
// through the write buffer.
type HintService interface {
	UseHint(ctx context.Context, participantID string, hintID uuid.UUID) (dto.HintResponse, error)
}

type hintService struct {
	hints     repository.HintRepository
	solves    repository.SolveRepository
	config    PlayConfigService
	buffers   *buffer.Store
	guards    *guard.Registry
	cache     *cache.Cache
	pairState *cache.PairStateStore
	logger    zerolog.Logger
	guardWait time.Duration
	now       func() time.Time
}

// NewHintService builds the hint usage service.
func NewHintService(
	hints repository.HintRepository,
	solves repository.SolveRepository,
	config PlayConfigService,
	buffers *buffer.Store,
	guards *guard.Registry,
	cacheLayer *cache.Cache,
	pairState *cache.PairStateStore,
	guardWait time.Duration,
	logger zerolog.Logger,
) HintService {
	return &hintService{
		hints:     hints,
		solves:    solves,
		config:    config,
		buffers:   buffers,
		guards:    guards,
		cache:     cacheLayer,
		pairState: pairState,
		logger:    logger.With().Str("component", "hint_service").Logger(),
		guardWait: guardWait,
		now:       time.Now,
	}
}

func (s *hintService) UseHint(ctx context.Context, participantID string, hintID uuid.UUID) (dto.HintResponse, error) {
	allowed, err := s.config.SubmissionsAllowed(ctx)
	if err != nil {
		return dto.HintResponse{}, err
	}
	if !allowed {
		return dto.HintResponse{}, ErrHintsNotAllowed
	}

	hint, err := s.hints.GetByID(ctx, hintID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.HintResponse{}, ErrHintNotFound
	}
	if err != nil {
		return dto.HintResponse{}, fmt.Errorf("failed to load hint: %w", err)
	}

	// Serialize against submissions for the same pair so a hint cannot be
	// charged concurrently with the solve that would forbid it.
	release, err := s.guards.Acquire(ctx, guard.Key{ParticipantID: participantID, ChallengeID: hint.ChallengeID}, s.guardWait)
	if errors.Is(err, guard.ErrBusy) {
		return dto.HintResponse{}, ErrAnotherProcessRunning
	}
	if err != nil {
		return dto.HintResponse{}, err
	}
	defer release()

	solved, err := s.solves.Exists(ctx, participantID, hint.ChallengeID)
	if err != nil {
		return dto.HintResponse{}, err
	}
	if solved || s.buffers.HasSolve(participantID, hint.ChallengeID) {
		return dto.HintResponse{}, ErrChallengeSolvedByUser
	}

	response := dto.HintResponse{Content: hint.Content, Deduction: hint.Deduction}

	// Repeat reveals are free: the first usage is the only one that buffers
	// a deduction row.
	usedKey := cache.HintUsed(participantID, hintID)
	var used bool
	if hit, err := s.cache.GetJSON(ctx, usedKey, &used); err == nil && hit && used {
		return response, nil
	}

	alreadyUsed, err := s.hints.UsageExists(ctx, participantID, hintID)
	if err != nil {
		return dto.HintResponse{}, err
	}
	if alreadyUsed {
		if err := s.cache.SetJSON(ctx, usedKey, true, hintUsedTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache hint usage flag")
		}
		return response, nil
	}

	if err := s.cache.SetJSON(ctx, usedKey, true, hintUsedTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache hint usage flag")
	}

	s.buffers.AddHintUsages(buffer.HintUsageRow{
		ParticipantID: participantID,
		HintID:        hintID,
		ChallengeID:   hint.ChallengeID,
		ChallengeName: hint.Challenge.Name,
		Deduction:     hint.Deduction,
		UsedAt:        s.now().UTC(),
	})

	if err := s.cache.Delete(ctx, cache.ParticipantStats(participantID)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate participant stats cache")
	}

	s.logger.Info().
		Str("participant_id", participantID).
		Str("hint_id", hintID.String()).
		Int("deduction", hint.Deduction).
		Msg("hint used")

	return response, nil
}
