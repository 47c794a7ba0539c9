package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flagforge/play-api/internal/models"
)

// ConfigurationRepository owns the durable key/value toggles.
type ConfigurationRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
}

type configurationRepository struct {
	db *gorm.DB
}

// NewConfigurationRepository instantiates the repository.
func NewConfigurationRepository(db *gorm.DB) ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (r *configurationRepository) Get(ctx context.Context, key string) (string, error) {
	var entry models.Configuration
	if err := r.db.WithContext(ctx).First(&entry, "key = ?", key).Error; err != nil {
		return "", err
	}

	return entry.Value, nil
}

func (r *configurationRepository) Upsert(ctx context.Context, key, value string) error {
	entry := models.Configuration{Key: key, Value: value}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&entry).
		Error
}
