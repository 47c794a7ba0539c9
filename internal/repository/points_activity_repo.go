package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flagforge/play-api/internal/models"
)

// PointsActivityRepository owns the append-only point ledger. The flush paths
// write the ledger in the same transaction as the rows it accounts for, so
// the ledger sum never drifts from the persisted records.
type PointsActivityRepository interface {
	AppendWithSolves(ctx context.Context, solves []models.Solve, ledger []models.PointsActivity) error
	AppendWithHintUsages(ctx context.Context, usages []models.HintUsage, ledger []models.PointsActivity, debits map[string]int) error
	SumForParticipant(ctx context.Context, participantID string) (int, error)
	ListForParticipant(ctx context.Context, participantID string) ([]models.PointsActivity, error)
}

type pointsActivityRepository struct {
	db *gorm.DB
}

// NewPointsActivityRepository instantiates the repository.
func NewPointsActivityRepository(db *gorm.DB) PointsActivityRepository {
	return &pointsActivityRepository{db: db}
}

// AppendWithSolves inserts the solves and their positive ledger entries in
// one transaction. Solves that would violate the (participant_id,
// challenge_id) uniqueness backstop are silently skipped.
func (r *pointsActivityRepository) AppendWithSolves(ctx context.Context, solves []models.Solve, ledger []models.PointsActivity) error {
	if len(solves) == 0 && len(ledger) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(solves) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "participant_id"}, {Name: "challenge_id"}},
				DoNothing: true,
			}).Create(&solves).Error
			if err != nil {
				return err
			}
		}

		if len(ledger) > 0 {
			if err := tx.CreateInBatches(&ledger, 500).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// AppendWithHintUsages inserts the usages, their negative ledger entries, and
// the per-participant point debits in one transaction. Usages whose
// (participant, hint) pair already holds a row are silently skipped; debits
// cover only the usages that were new.
func (r *pointsActivityRepository) AppendWithHintUsages(ctx context.Context, usages []models.HintUsage, ledger []models.PointsActivity, debits map[string]int) error {
	if len(usages) == 0 && len(ledger) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(usages) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "participant_id"}, {Name: "hint_id"}},
				DoNothing: true,
			}).Create(&usages).Error
			if err != nil {
				return err
			}
		}

		if len(ledger) > 0 {
			if err := tx.CreateInBatches(&ledger, 500).Error; err != nil {
				return err
			}
		}

		for participantID, deduction := range debits {
			err := tx.Model(&models.Participant{}).
				Where("id = ?", participantID).
				UpdateColumn("points", gorm.Expr("points - ?", deduction)).
				Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// SumForParticipant reconstructs the point total from the ledger, the
// consistency check behind idempotent counter updates.
func (r *pointsActivityRepository) SumForParticipant(ctx context.Context, participantID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PointsActivity{}).
		Where("participant_id = ?", participantID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).
		Error

	return int(total), err
}

func (r *pointsActivityRepository) ListForParticipant(ctx context.Context, participantID string) ([]models.PointsActivity, error) {
	var activities []models.PointsActivity
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("occurred_at ASC").
		Find(&activities).
		Error
	if err != nil {
		return nil, err
	}

	return activities, nil
}
