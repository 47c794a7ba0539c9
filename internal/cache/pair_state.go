package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PairState is the fast-path snapshot of one (participant, challenge) pair
// consulted during evaluation. Entries are advisory accelerants: a missing
// entry is reconstructed from the durable store by the fallback loader.
type PairState struct {
	Solved      bool
	Attempts    int
	RecentCount int
}

// PairFallback reconstructs pair state from the durable store when the cache
// has no entry for it.
type PairFallback func(ctx context.Context, participantID string, challengeID uuid.UUID) (solved bool, attempts int, err error)

// PairStateStore keeps short-TTL per-pair counters in Redis so the evaluator
// does not round-trip to the relational store on every submission.
type PairStateStore struct {
	client       *redis.Client
	ttl          time.Duration
	recentWindow time.Duration
	logger       zerolog.Logger
}

// NewPairStateStore builds the fast-path state store.
func NewPairStateStore(client *redis.Client, ttl, recentWindow time.Duration, logger zerolog.Logger) *PairStateStore {
	return &PairStateStore{
		client:       client,
		ttl:          ttl,
		recentWindow: recentWindow,
		logger:       logger.With().Str("component", "pair_state").Logger(),
	}
}

// Load returns the pair state, consulting the cache first and falling back to
// the durable store (then repopulating the cache) when entries are absent.
func (s *PairStateStore) Load(ctx context.Context, participantID string, challengeID uuid.UUID, fallback PairFallback) (PairState, error) {
	solvedKey := PairSolved(participantID, challengeID)
	attemptsKey := PairAttempts(participantID, challengeID)
	recentKey := PairRecent(participantID, challengeID)

	values, err := s.client.MGet(ctx, solvedKey, attemptsKey, recentKey).Result()
	if err != nil {
		return PairState{}, fmt.Errorf("failed to read pair state: %w", err)
	}

	var state PairState
	solvedHit := false
	attemptsHit := false

	if raw, ok := values[0].(string); ok {
		state.Solved = raw == "1"
		solvedHit = true
	}
	if raw, ok := values[1].(string); ok {
		if _, err := fmt.Sscanf(raw, "%d", &state.Attempts); err == nil {
			attemptsHit = true
		}
	}
	if raw, ok := values[2].(string); ok {
		_, _ = fmt.Sscanf(raw, "%d", &state.RecentCount)
	}

	if solvedHit && attemptsHit {
		return state, nil
	}

	solved, attempts, err := fallback(ctx, participantID, challengeID)
	if err != nil {
		return PairState{}, fmt.Errorf("failed to reconstruct pair state: %w", err)
	}

	state.Solved = solved
	state.Attempts = attempts

	pipe := s.client.Pipeline()
	pipe.Set(ctx, solvedKey, boolValue(solved), s.ttl)
	pipe.Set(ctx, attemptsKey, attempts, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to repopulate pair state")
	}

	return state, nil
}

// MarkSolved flips the solved flag for the pair right after a Correct verdict,
// before the solved event is even published.
func (s *PairStateStore) MarkSolved(ctx context.Context, participantID string, challengeID uuid.UUID) error {
	if err := s.client.Set(ctx, PairSolved(participantID, challengeID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark pair solved: %w", err)
	}

	return nil
}

// RecordIncorrect bumps the attempts-used counter and the rolling
// recent-submission counter after an Incorrect verdict.
func (s *PairStateStore) RecordIncorrect(ctx context.Context, participantID string, challengeID uuid.UUID) error {
	attemptsKey := PairAttempts(participantID, challengeID)
	recentKey := PairRecent(participantID, challengeID)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, attemptsKey)
	pipe.Expire(ctx, attemptsKey, s.ttl)
	recent := pipe.Incr(ctx, recentKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record incorrect submission: %w", err)
	}

	// Only the first increment inside the window arms the expiry, so the
	// counter rolls over recentWindow after the burst started.
	if recent.Val() == 1 {
		if err := s.client.Expire(ctx, recentKey, s.recentWindow).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to arm recent-submission window")
		}
	}

	return nil
}

// Invalidate drops every fast-path entry for the pair. Called when
// administrative actions mutate the underlying rows out of band.
func (s *PairStateStore) Invalidate(ctx context.Context, participantID string, challengeID uuid.UUID) error {
	err := s.client.Del(ctx,
		PairSolved(participantID, challengeID),
		PairAttempts(participantID, challengeID),
		PairRecent(participantID, challengeID),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate pair state: %w", err)
	}

	return nil
}

func boolValue(v bool) string {
	if v {
		return "1"
	}

	return "0"
}
