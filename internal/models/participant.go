package models

import "time"

// Participant mirrors the directory service's identity record plus the
// aggregate scoring fields the play core owns: a running point total and the
// latest-solve timestamp used as the ranking tie-break.
type Participant struct {
	ID          string    `gorm:"size:36;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Points      int       `gorm:"not null;default:0" json:"points"`
	LatestSolve time.Time `json:"latest_solve"`
	Hidden      bool      `gorm:"not null;default:false" json:"hidden"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
