package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contextimage/internal/models"
)

// Models lists the tables the repositories read, for database.Init to migrate.
func Models() []any {
	return []any{&models.ExtensionSettings{}}
}

// ExtensionSettingsRepository stores one settings document per extension name.
type ExtensionSettingsRepository interface {
	// Get returns nil, nil when no document has been saved yet.
	Get(ctx context.Context, name string) (*models.ExtensionSettings, error)
	Save(ctx context.Context, name string, data string) error
	Delete(ctx context.Context, name string) error
}

type extensionSettingsRepository struct {
	db *gorm.DB
}

func NewExtensionSettingsRepository(db *gorm.DB) ExtensionSettingsRepository {
	return &extensionSettingsRepository{db: db}
}

func (r *extensionSettingsRepository) Get(ctx context.Context, name string) (*models.ExtensionSettings, error) {
	var row models.ExtensionSettings
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *extensionSettingsRepository) Save(ctx context.Context, name string, data string) error {
	row := models.ExtensionSettings{Name: name, Data: data}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

func (r *extensionSettingsRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.ExtensionSettings{}).Error
}
