package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// HintRepository owns hints and the reads over their one-time usage records.
// Usage inserts go through the ledger repository so the usage, its ledger
// entry, and the debit land together.
type HintRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Hint, error)
	UsageExists(ctx context.Context, participantID string, hintID uuid.UUID) (bool, error)
	ExistingUsages(ctx context.Context, usages []models.HintUsage) (map[string]struct{}, error)
	CreateHint(ctx context.Context, hint *models.Hint) error
}

type hintRepository struct {
	db *gorm.DB
}

// NewHintRepository instantiates the repository.
func NewHintRepository(db *gorm.DB) HintRepository {
	return &hintRepository{db: db}
}

func (r *hintRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Hint, error) {
	var hint models.Hint
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		First(&hint, "id = ?", id).
		Error
	if err != nil {
		return models.Hint{}, err
	}

	return hint, nil
}

func (r *hintRepository) UsageExists(ctx context.Context, participantID string, hintID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.HintUsage{}).
		Where("participant_id = ? AND hint_id = ?", participantID, hintID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ExistingUsages reports which of the given usages already exist, keyed by
// participantID + "/" + hintID.
func (r *hintRepository) ExistingUsages(ctx context.Context, usages []models.HintUsage) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(usages))
	if len(usages) == 0 {
		return existing, nil
	}

	participantIDs := make([]string, 0, len(usages))
	hintIDs := make([]uuid.UUID, 0, len(usages))
	for _, usage := range usages {
		participantIDs = append(participantIDs, usage.ParticipantID)
		hintIDs = append(hintIDs, usage.HintID)
	}

	var rows []models.HintUsage
	err := r.db.WithContext(ctx).
		Where("participant_id IN ?", participantIDs).
		Where("hint_id IN ?", hintIDs).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		existing[row.ParticipantID+"/"+row.HintID.String()] = struct{}{}
	}

	return existing, nil
}

func (r *hintRepository) CreateHint(ctx context.Context, hint *models.Hint) error {
	return r.db.WithContext(ctx).Create(hint).Error
}
