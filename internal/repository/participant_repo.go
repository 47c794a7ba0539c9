package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// ParticipantRepository exposes the identity checks and the visibility and
// ranking reads of the play core. Point mutations go through the score and
// ledger repositories so they land transactionally with their batches.
type ParticipantRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (models.Participant, error)
	SetHidden(ctx context.Context, id string, hidden bool) error
	RankedVisible(ctx context.Context) ([]models.Participant, error)
	Create(ctx context.Context, participant *models.Participant) error
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository instantiates the repository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", id).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (models.Participant, error) {
	var participant models.Participant
	if err := r.db.WithContext(ctx).First(&participant, "id = ?", id).Error; err != nil {
		return models.Participant{}, err
	}

	return participant, nil
}

func (r *participantRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", id).
		UpdateColumn("hidden", hidden).
		Error
}

// RankedVisible returns leaderboard-visible participants in rank order:
// points descending, tie-broken by the earliest latest-solve timestamp.
func (r *participantRepository) RankedVisible(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.WithContext(ctx).
		Where("hidden = ?", false).
		Order("points DESC").
		Order("latest_solve ASC").
		Find(&participants).
		Error
	if err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *participantRepository) Create(ctx context.Context, participant *models.Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}
