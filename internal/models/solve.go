package models

import (
	"time"

	"github.com/google/uuid"
)

// Solve records that a participant answered a challenge correctly. The unique
// index on (participant_id, challenge_id) is the storage-level backstop for
// at-most-once scoring, independent of the in-process concurrency guard.
type Solve struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID string    `gorm:"size:36;not null;uniqueIndex:idx_solves_pair" json:"participant_id"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_solves_pair" json:"challenge_id"`
	SolvedAt      time.Time `gorm:"not null" json:"solved_at"`
}
