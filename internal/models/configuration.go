package models

// Configuration is a string-encoded key/value toggle read on every
// submission, cached with invalidate-on-write.
type Configuration struct {
	Key   string `gorm:"size:64;primaryKey" json:"key"`
	Value string `gorm:"size:64;not null" json:"value"`
}

// Configuration keys owned by the play core.
const (
	ConfigSubmissionsAllowed     = "submissions_allowed"
	ConfigChallengesLocked       = "challenges_locked"
	ConfigPublicLeaderboardCount = "public_leaderboard_count"
)
