package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// ChallengeRepository defines the play core's read-mostly access to the
// challenge catalog. Solve-count increments go through the score repository
// so they land with the rest of the batch.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Challenge, error)
	Create(ctx context.Context, challenge *models.Challenge) error
}

type challengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository instantiates the repository.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error; err != nil {
		return models.Challenge{}, err
	}

	return challenge, nil
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}
