package models

import "time"

// ExtensionSettings is the persisted form of one extension's settings
// document. Data holds the flat, versionless JSON object.
type ExtensionSettings struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null;uniqueIndex"`
	Data      string `gorm:"type:text;not null;default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
