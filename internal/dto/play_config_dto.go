package dto

// PlayConfigurationResponse reports the toggles the play core reads on every
// submission.
type PlayConfigurationResponse struct {
	SubmissionsAllowed     bool `json:"submissions_allowed"`
	ChallengesLocked       bool `json:"challenges_locked"`
	PublicLeaderboardCount int  `json:"public_leaderboard_count"`
}

// SetLeaderboardCountRequest sets how many entries the public leaderboard
// exposes.
type SetLeaderboardCountRequest struct {
	Count int `json:"count" validate:"required,min=1,max=500"`
}
