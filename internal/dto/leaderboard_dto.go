package dto

import "time"

// RankEntry is one row of the recalculated leaderboard.
type RankEntry struct {
	Position      int       `json:"position"`
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Points        int       `json:"points"`
	LatestSolve   time.Time `json:"latest_solve"`
}
