package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Challenge is read-mostly reference data owned by the catalog service.
// The play core reads it on every submission and bumps SolveCount when a
// solve batch lands.
type Challenge struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	Points          int            `gorm:"not null" json:"points"`
	DeadlineEnabled bool           `gorm:"not null" json:"deadline_enabled"`
	Deadline        time.Time      `json:"deadline"`
	MaxAttempts     int            `gorm:"not null" json:"max_attempts"`
	Flags           datatypes.JSON `gorm:"not null" json:"-"`
	SolveCount      int            `gorm:"not null;default:0" json:"solve_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// FlagValues decodes the accepted flag list. An empty slice is returned for
// malformed or missing data so callers can treat it as "no flags".
func (c Challenge) FlagValues() []string {
	var flags []string
	if err := json.Unmarshal(c.Flags, &flags); err != nil {
		return nil
	}

	return flags
}

// EncodeFlags builds the JSON column value for an accepted flag list.
func EncodeFlags(flags []string) datatypes.JSON {
	raw, err := json.Marshal(flags)
	if err != nil {
		return datatypes.JSON("[]")
	}

	return raw
}
