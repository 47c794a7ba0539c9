package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/models"
)

// ScoredSolve carries the aggregate deltas of one freshly accepted solve.
type ScoredSolve struct {
	ParticipantID string
	ChallengeID   uuid.UUID
	Points        int
	SolvedAt      time.Time
}

// ScoreRepository applies the cross-table aggregate writes of the solved
// batch path. A batch lands in one transaction, so a failed batch leaves no
// trace and can be retried whole without double counting.
type ScoreRepository interface {
	ApplySolvedAggregates(ctx context.Context, rows []ScoredSolve) error
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository instantiates the repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) ApplySolvedAggregates(ctx context.Context, rows []ScoredSolve) error {
	if len(rows) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perChallenge := make(map[uuid.UUID]int, len(rows))
		for _, row := range rows {
			perChallenge[row.ChallengeID]++
		}

		for challengeID, delta := range perChallenge {
			err := tx.Model(&models.Challenge{}).
				Where("id = ?", challengeID).
				UpdateColumn("solve_count", gorm.Expr("solve_count + ?", delta)).
				Error
			if err != nil {
				return err
			}
		}

		for _, row := range rows {
			// The tie-break timestamp only ever moves forward.
			err := tx.Exec(
				`UPDATE participants
				 SET points = points + ?,
				     latest_solve = CASE WHEN latest_solve < ? THEN ? ELSE latest_solve END
				 WHERE id = ?`,
				row.Points, row.SolvedAt, row.SolvedAt, row.ParticipantID,
			).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
