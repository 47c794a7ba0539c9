package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsActivity is the append-only ledger of point-affecting events: one row
// per solve gain or hint deduction. A participant's point total always equals
// the sum of their deltas, which makes counter updates reconcilable after a
// partial batch failure.
type PointsActivity struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ParticipantID string    `gorm:"size:36;not null;index" json:"participant_id"`
	IsSolve       bool      `gorm:"not null" json:"is_solve"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null" json:"challenge_id"`
	HintID        uuid.UUID `gorm:"type:uuid" json:"hint_id"`
	ChallengeName string    `gorm:"size:100" json:"challenge_name"`
	Delta         int       `gorm:"not null" json:"delta"`
	OccurredAt    time.Time `gorm:"not null" json:"occurred_at"`
}
