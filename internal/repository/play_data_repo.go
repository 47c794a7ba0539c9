package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// PlayDataRepository groups the cross-table maintenance operations: clearing
// a participant's play data and rebuilding the ledger-derived aggregates.
type PlayDataRepository interface {
	ClearForParticipant(ctx context.Context, participantID string) error
	RebuildLedger(ctx context.Context) error
}

type playDataRepository struct {
	db *gorm.DB
}

// NewPlayDataRepository instantiates the repository.
func NewPlayDataRepository(db *gorm.DB) PlayDataRepository {
	return &playDataRepository{db: db}
}

// ClearForParticipant deletes every play record of one participant and resets
// their aggregate fields, all in one transaction.
func (r *playDataRepository) ClearForParticipant(ctx context.Context, participantID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("participant_id = ?", participantID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("participant_id = ?", participantID).Delete(&models.Solve{}).Error; err != nil {
			return err
		}
		if err := tx.Where("participant_id = ?", participantID).Delete(&models.HintUsage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("participant_id = ?", participantID).Delete(&models.PointsActivity{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Participant{}).
			Where("id = ?", participantID).
			Updates(map[string]any{"points": 0, "latest_solve": time.Time{}}).
			Error
	})
}

// RebuildLedger regenerates the points ledger from the solve and hint usage
// tables, then recomputes every participant's point total and latest-solve
// timestamp from it. The whole rebuild runs in one transaction so a failure
// leaves the previous ledger intact.
func (r *playDataRepository) RebuildLedger(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM points_activities`).Error; err != nil {
			return err
		}

		err := tx.Exec(`
			INSERT INTO points_activities (participant_id, is_solve, challenge_id, hint_id, challenge_name, delta, occurred_at)
			SELECT s.participant_id, ?, s.challenge_id, ?, c.name, c.points, s.solved_at
			FROM solves s
			JOIN challenges c ON c.id = s.challenge_id`,
			true, "00000000-0000-0000-0000-000000000000",
		).Error
		if err != nil {
			return err
		}

		err = tx.Exec(`
			INSERT INTO points_activities (participant_id, is_solve, challenge_id, hint_id, challenge_name, delta, occurred_at)
			SELECT hu.participant_id, ?, hu.challenge_id, hu.hint_id, c.name, -hu.deduction, hu.used_at
			FROM hint_usages hu
			JOIN challenges c ON c.id = hu.challenge_id`,
			false,
		).Error
		if err != nil {
			return err
		}

		err = tx.Exec(`
			UPDATE participants
			SET points = COALESCE((
				SELECT SUM(pa.delta) FROM points_activities pa WHERE pa.participant_id = participants.id
			), 0)`,
		).Error
		if err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE participants
			SET latest_solve = (
				SELECT MAX(pa.occurred_at) FROM points_activities pa
				WHERE pa.participant_id = participants.id AND pa.is_solve = ?
			)
			WHERE EXISTS (
				SELECT 1 FROM points_activities pa
				WHERE pa.participant_id = participants.id AND pa.is_solve = ?
			)`,
			true, true,
		).Error
	})
}
