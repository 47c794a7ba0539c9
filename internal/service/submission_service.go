package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/events"
	"github.com/flagforge/play-api/internal/guard"
	"github.com/flagforge/play-api/internal/observability"
	"github.com/flagforge/play-api/internal/repository"
)

// Validation and contention errors surfaced by the submit path. Policy
// rejections are verdicts, not errors.
var (
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrNoChallengeFlags      = errors.New("challenge has no flags configured")
	ErrEmptyValue            = errors.New("submission value must not be empty")
	ErrValueTooLong          = errors.New("submission value must be 100 characters or less")
	ErrAnotherProcessRunning = errors.New("another submission for this challenge is being processed")
)

const maxValueLength = 100

// challengeSnapshot is the cached read model of a challenge consulted on
// every submission.
type challengeSnapshot struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Points          int       `json:"points"`
	DeadlineEnabled bool      `json:"deadline_enabled"`
	Deadline        time.Time `json:"deadline"`
	MaxAttempts     int       `json:"max_attempts"`
	Flags           []string  `json:"flags"`
	SolveCount      int       `json:"solve_count"`
}

// SubmissionService is the synchronous half of the ingestion pipeline: it
// evaluates one attempt under the per-pair guard, updates the fast-path
// state, and hands durable persistence to the event consumers.
type SubmissionService interface {
	Submit(ctx context.Context, participantID string, challengeID uuid.UUID, value string) (Verdict, error)
	ChallengeStatus(ctx context.Context, participantID string, challengeID uuid.UUID) (dto.ChallengeStatusResponse, error)
}

type submissionService struct {
	challenges   repository.ChallengeRepository
	participants repository.ParticipantRepository
	solves       repository.SolveRepository
	submissions  repository.SubmissionRepository
	config       PlayConfigService
	pairState    *cache.PairStateStore
	guards       *guard.Registry
	publisher    events.Publisher
	cache        *cache.Cache
	logger       zerolog.Logger
	tracer       trace.Tracer

	guardWait    time.Duration
	recentLimit  int
	challengeTTL time.Duration
	now          func() time.Time
}

// SubmissionServiceDeps bundles the collaborators of the submit path.
type SubmissionServiceDeps struct {
	Challenges   repository.ChallengeRepository
	Participants repository.ParticipantRepository
	Solves       repository.SolveRepository
	Submissions  repository.SubmissionRepository
	Config       PlayConfigService
	PairState    *cache.PairStateStore
	Guards       *guard.Registry
	Publisher    events.Publisher
	Cache        *cache.Cache
	Logger       zerolog.Logger
	GuardWait    time.Duration
	RecentLimit  int
	ChallengeTTL time.Duration
}

// NewSubmissionService constructs the submission pipeline entry point.
func NewSubmissionService(deps SubmissionServiceDeps) SubmissionService {
	return &submissionService{
		challenges:   deps.Challenges,
		participants: deps.Participants,
		solves:       deps.Solves,
		submissions:  deps.Submissions,
		config:       deps.Config,
		pairState:    deps.PairState,
		guards:       deps.Guards,
		publisher:    deps.Publisher,
		cache:        deps.Cache,
		logger:       deps.Logger.With().Str("component", "submission_service").Logger(),
		tracer:       otel.Tracer("github.com/flagforge/play-api/internal/service/submission"),
		guardWait:    deps.GuardWait,
		recentLimit:  deps.RecentLimit,
		challengeTTL: deps.ChallengeTTL,
		now:          time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, participantID string, challengeID uuid.UUID, value string) (Verdict, error) {
	submittedAt := s.now().UTC()

	ctx, span := s.tracer.Start(ctx, "play.submit", trace.WithAttributes(
		attribute.String("participant.id", participantID),
		attribute.String("challenge.id", challengeID.String()),
	))
	defer span.End()

	if value == "" {
		return 0, ErrEmptyValue
	}
	if len(value) > maxValueLength {
		return 0, ErrValueTooLong
	}

	exists, err := s.participants.Exists(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return 0, ErrParticipantNotFound
	}

	challenge, err := s.challengeSnapshot(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	if len(challenge.Flags) == 0 {
		return 0, ErrNoChallengeFlags
	}

	submissionsAllowed, err := s.config.SubmissionsAllowed(ctx)
	if err != nil {
		return 0, err
	}
	challengesLocked, err := s.config.ChallengesLocked(ctx)
	if err != nil {
		return 0, err
	}

	// Serialize evaluation-then-mutate per pair. Unrelated pairs proceed in
	// parallel; exceeding the wait budget is a retryable contention signal.
	release, err := s.guards.Acquire(ctx, guard.Key{ParticipantID: participantID, ChallengeID: challengeID}, s.guardWait)
	if errors.Is(err, guard.ErrBusy) {
		observability.GuardTimeouts().Inc()
		return 0, ErrAnotherProcessRunning
	}
	if err != nil {
		return 0, err
	}
	defer release()

	state, err := s.pairState.Load(ctx, participantID, challengeID, s.loadPairFromStore)
	if err != nil {
		return 0, err
	}

	verdict := Evaluate(EvaluationInput{
		Flags:              challenge.Flags,
		DeadlineEnabled:    challenge.DeadlineEnabled,
		Deadline:           challenge.Deadline,
		MaxAttempts:        challenge.MaxAttempts,
		SubmissionsAllowed: submissionsAllowed,
		ChallengesLocked:   challengesLocked,
		AlreadySolved:      state.Solved,
		AttemptsUsed:       state.Attempts,
		RecentCount:        state.RecentCount,
		RecentLimit:        s.recentLimit,
		Value:              value,
		Now:                submittedAt,
	})

	span.SetAttributes(attribute.String("submission.verdict", verdict.String()))
	observability.Submissions().WithLabelValues(verdict.String()).Inc()

	switch verdict {
	case VerdictCorrect:
		if err := s.recordCorrect(ctx, participantID, challenge, value, submittedAt); err != nil {
			return 0, err
		}
	case VerdictIncorrect:
		if err := s.recordIncorrect(ctx, participantID, challengeID, value, submittedAt); err != nil {
			return 0, err
		}
	default:
		// Policy rejections mutate nothing and publish nothing.
	}

	return verdict, nil
}

// recordCorrect publishes both events, then moves the fast-path state to
// solved. Runs under the guard, so only one caller can score the pair.
func (s *submissionService) recordCorrect(ctx context.Context, participantID string, challenge challengeSnapshot, value string, submittedAt time.Time) error {
	// Events go out first: a failed publish must leave the pair
	// resubmittable. Once the solved event is out the batch path scores it
	// even if the flag write below fails, and a replayed publish after such
	// a failure is absorbed by the downstream pair dedup.
	if err := s.publisher.PublishSubmitted(ctx, events.SubmittedEvent{
		ParticipantID: participantID,
		ChallengeID:   challenge.ID,
		Value:         value,
		Correct:       true,
		SubmittedAt:   submittedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish submitted event: %w", err)
	}

	if err := s.publisher.PublishSolved(ctx, events.SolvedEvent{
		ParticipantID: participantID,
		ChallengeID:   challenge.ID,
		ChallengeName: challenge.Name,
		Points:        challenge.Points,
		SolvedAt:      submittedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish solved event: %w", err)
	}

	if err := s.pairState.MarkSolved(ctx, participantID, challenge.ID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to mark pair solved, flag will repopulate from the durable record")
	}

	// Keep the cached snapshot's solve count in step until the batch path
	// lands the durable increment.
	challenge.SolveCount++
	if err := s.cache.SetJSON(ctx, cache.ChallengeDetails(challenge.ID), challenge, s.challengeTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh challenge snapshot cache")
	}
	if err := s.cache.Delete(ctx, cache.ParticipantStats(participantID)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate participant stats cache")
	}

	s.logger.Info().
		Str("participant_id", participantID).
		Str("challenge_id", challenge.ID.String()).
		Msg("challenge solved")

	return nil
}

func (s *submissionService) recordIncorrect(ctx context.Context, participantID string, challengeID uuid.UUID, value string, submittedAt time.Time) error {
	if err := s.pairState.RecordIncorrect(ctx, participantID, challengeID); err != nil {
		return err
	}

	if err := s.publisher.PublishSubmitted(ctx, events.SubmittedEvent{
		ParticipantID: participantID,
		ChallengeID:   challengeID,
		Value:         value,
		Correct:       false,
		SubmittedAt:   submittedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish submitted event: %w", err)
	}

	return nil
}

func (s *submissionService) ChallengeStatus(ctx context.Context, participantID string, challengeID uuid.UUID) (dto.ChallengeStatusResponse, error) {
	challenge, err := s.challengeSnapshot(ctx, challengeID)
	if err != nil {
		return dto.ChallengeStatusResponse{}, err
	}

	state, err := s.pairState.Load(ctx, participantID, challengeID, s.loadPairFromStore)
	if err != nil {
		return dto.ChallengeStatusResponse{}, err
	}

	return dto.ChallengeStatusResponse{
		Solved:       state.Solved,
		AttemptsUsed: state.Attempts,
		MaxAttempts:  challenge.MaxAttempts,
	}, nil
}

// challengeSnapshot reads the challenge from cache first; the participant has
// usually loaded the details before submitting.
func (s *submissionService) challengeSnapshot(ctx context.Context, challengeID uuid.UUID) (challengeSnapshot, error) {
	key := cache.ChallengeDetails(challengeID)

	var snapshot challengeSnapshot
	hit, err := s.cache.GetJSON(ctx, key, &snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read challenge snapshot cache")
	}
	if hit {
		return snapshot, nil
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return challengeSnapshot{}, ErrChallengeNotFound
	}
	if err != nil {
		return challengeSnapshot{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	snapshot = challengeSnapshot{
		ID:              challenge.ID,
		Name:            challenge.Name,
		Points:          challenge.Points,
		DeadlineEnabled: challenge.DeadlineEnabled,
		Deadline:        challenge.Deadline,
		MaxAttempts:     challenge.MaxAttempts,
		Flags:           challenge.FlagValues(),
		SolveCount:      challenge.SolveCount,
	}

	if err := s.cache.SetJSON(ctx, key, snapshot, s.challengeTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store challenge snapshot cache")
	}

	return snapshot, nil
}

// loadPairFromStore is the durable fallback when the fast-path cache has no
// entry for a pair.
func (s *submissionService) loadPairFromStore(ctx context.Context, participantID string, challengeID uuid.UUID) (bool, int, error) {
	solved, err := s.solves.Exists(ctx, participantID, challengeID)
	if err != nil {
		return false, 0, err
	}

	attempts, err := s.submissions.CountForPair(ctx, participantID, challengeID)
	if err != nil {
		return false, 0, err
	}

	return solved, int(attempts), nil
}
