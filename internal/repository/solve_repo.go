package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// Pair identifies one (participant, challenge) combination.
type Pair struct {
	ParticipantID string
	ChallengeID   uuid.UUID
}

// SolveRepository owns the reads over the at-most-once solve records. The
// flush path inserts solves through the ledger repository so the solve and
// its ledger entry land together.
type SolveRepository interface {
	Exists(ctx context.Context, participantID string, challengeID uuid.UUID) (bool, error)
	ExistingPairs(ctx context.Context, pairs []Pair) (map[Pair]struct{}, error)
	ListForParticipant(ctx context.Context, participantID string) ([]models.Solve, error)
	CountForChallenge(ctx context.Context, challengeID uuid.UUID) (int64, error)
}

type solveRepository struct {
	db *gorm.DB
}

// NewSolveRepository instantiates the repository.
func NewSolveRepository(db *gorm.DB) SolveRepository {
	return &solveRepository{db: db}
}

func (r *solveRepository) Exists(ctx context.Context, participantID string, challengeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Solve{}).
		Where("participant_id = ? AND challenge_id = ?", participantID, challengeID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *solveRepository) ExistingPairs(ctx context.Context, pairs []Pair) (map[Pair]struct{}, error) {
	existing := make(map[Pair]struct{}, len(pairs))
	if len(pairs) == 0 {
		return existing, nil
	}

	participantIDs := make([]string, 0, len(pairs))
	challengeIDs := make([]uuid.UUID, 0, len(pairs))
	for _, pair := range pairs {
		participantIDs = append(participantIDs, pair.ParticipantID)
		challengeIDs = append(challengeIDs, pair.ChallengeID)
	}

	var solves []models.Solve
	err := r.db.WithContext(ctx).
		Where("participant_id IN ?", participantIDs).
		Where("challenge_id IN ?", challengeIDs).
		Find(&solves).
		Error
	if err != nil {
		return nil, err
	}

	for _, solve := range solves {
		existing[Pair{ParticipantID: solve.ParticipantID, ChallengeID: solve.ChallengeID}] = struct{}{}
	}

	return existing, nil
}

func (r *solveRepository) ListForParticipant(ctx context.Context, participantID string) ([]models.Solve, error) {
	var solves []models.Solve
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("solved_at ASC").
		Find(&solves).
		Error
	if err != nil {
		return nil, err
	}

	return solves, nil
}

func (r *solveRepository) CountForChallenge(ctx context.Context, challengeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Solve{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).
		Error

	return count, err
}
