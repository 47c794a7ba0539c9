// Package events defines the message channel contracts between the
// synchronous submission path and the asynchronous ingestion consumers.
// Delivery is at-least-once; consumers must tolerate redelivery.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Subjects for the two ordered event streams.
const (
	SubjectSubmitted = "play.submissions.submitted"
	SubjectSolved    = "play.submissions.solved"
)

// SubmittedEvent is emitted for every evaluated attempt, correct or not.
type SubmittedEvent struct {
	ParticipantID string    `json:"participant_id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	Value         string    `json:"value"`
	Correct       bool      `json:"correct"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SolvedEvent is additionally emitted for a Correct verdict. It carries the
// challenge name and point value so consumers never re-read the catalog.
type SolvedEvent struct {
	ParticipantID string    `json:"participant_id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	ChallengeName string    `json:"challenge_name"`
	Points        int       `json:"points"`
	SolvedAt      time.Time `json:"solved_at"`
}
