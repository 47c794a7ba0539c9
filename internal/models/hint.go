package models

import (
	"time"

	"github.com/google/uuid"
)

// Hint belongs to a challenge and costs points to reveal.
type Hint struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;not null;index" json:"challenge_id"`
	Content     string    `gorm:"type:text" json:"content"`
	Deduction   int       `gorm:"not null" json:"deduction"`
	Challenge   Challenge `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HintUsage records the one-time point deduction for revealing a hint.
// At most one row per (participant, hint) pair; repeat reveals are free.
type HintUsage struct {
	ParticipantID string    `gorm:"size:36;primaryKey" json:"participant_id"`
	HintID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"hint_id"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null" json:"challenge_id"`
	Deduction     int       `gorm:"not null" json:"deduction"`
	UsedAt        time.Time `gorm:"not null" json:"used_at"`
}
