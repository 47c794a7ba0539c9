package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the append-only audit record of a single flag attempt,
// correct or not. The play core never updates or deletes these rows.
type Submission struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID string    `gorm:"size:36;not null;index" json:"participant_id"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null;index" json:"challenge_id"`
	Value         string    `gorm:"size:100" json:"value"`
	Correct       bool      `gorm:"not null" json:"correct"`
	SubmittedAt   time.Time `gorm:"not null" json:"submitted_at"`
}
