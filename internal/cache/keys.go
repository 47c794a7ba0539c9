package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key builders. Every cached read-model has exactly one key shape so the
// invalidation paths and the read paths can never drift apart.

// ChallengeDetails caches the challenge snapshot read on every submission.
func ChallengeDetails(challengeID uuid.UUID) string {
	return fmt.Sprintf("challenge:%s", challengeID)
}

// Configuration caches one play configuration entry.
func Configuration(key string) string {
	return fmt.Sprintf("configuration:%s", key)
}

// PairSolved holds the fast-path "already solved" flag for a pair.
func PairSolved(participantID string, challengeID uuid.UUID) string {
	return fmt.Sprintf("pair:%s:%s:solved", participantID, challengeID)
}

// PairAttempts holds the fast-path attempts-used counter for a pair.
func PairAttempts(participantID string, challengeID uuid.UUID) string {
	return fmt.Sprintf("pair:%s:%s:attempts", participantID, challengeID)
}

// PairRecent holds the rolling recent-submission counter for a pair.
func PairRecent(participantID string, challengeID uuid.UUID) string {
	return fmt.Sprintf("pair:%s:%s:recent", participantID, challengeID)
}

// PairPattern matches every fast-path entry belonging to a participant.
func PairPattern(participantID string) string {
	return fmt.Sprintf("pair:%s:*", participantID)
}

// HintUsed holds the fast-path "hint already used" flag.
func HintUsed(participantID string, hintID uuid.UUID) string {
	return fmt.Sprintf("hint:%s:%s:used", participantID, hintID)
}

// HintPattern matches every hint usage flag belonging to a participant.
func HintPattern(participantID string) string {
	return fmt.Sprintf("hint:%s:*", participantID)
}

// Leaderboard caches the full recalculated ranking.
func Leaderboard() string {
	return "leaderboard:ranks"
}

// ParticipantStats caches the per-participant stats read model.
func ParticipantStats(participantID string) string {
	return fmt.Sprintf("participant:%s:stats", participantID)
}
