package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// SubmissionRepository owns the append-only submission audit trail.
type SubmissionRepository interface {
	BulkInsert(ctx context.Context, submissions []models.Submission) error
	CountForPair(ctx context.Context, participantID string, challengeID uuid.UUID) (int64, error)
	ListForParticipant(ctx context.Context, participantID string) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) BulkInsert(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(&submissions, 500).Error
}

// CountForPair is the durable fallback for the fast-path attempts counter.
func (r *submissionRepository) CountForPair(ctx context.Context, participantID string, challengeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("participant_id = ? AND challenge_id = ?", participantID, challengeID).
		Count(&count).
		Error

	return count, err
}

func (r *submissionRepository) ListForParticipant(ctx context.Context, participantID string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("submitted_at ASC").
		Find(&submissions).
		Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}
