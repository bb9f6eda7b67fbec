package models

import (
	"time"
)

// Plate is one distinct license-plate identity, keyed by normalized text.
// Created lazily on the first report that references it; never updated.
type Plate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LicenseNumber string    `gorm:"size:20;not null;uniqueIndex" json:"license_number"`
	CreatedAt     time.Time `json:"created_at"`

	Reports []Report `gorm:"foreignKey:PlateID" json:"reports,omitempty"`
}
