package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a single user-submitted sighting tied to one plate. Reports are
// append-only: they are never updated or deleted, so every aggregate over
// them is a pure read.
type Report struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PlateID    uint       `gorm:"not null;index" json:"plate_id"`
	ReporterID *uuid.UUID `gorm:"type:uuid;index" json:"reporter_id,omitempty"`
	ImageURL   string     `gorm:"type:text;not null" json:"image_url"`
	CarMake    *string    `gorm:"size:50" json:"car_make,omitempty"`
	Rating     int        `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    *string    `gorm:"type:text" json:"comment,omitempty"`
	Location   *string    `gorm:"type:text" json:"location,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Plate    Plate `gorm:"foreignKey:PlateID" json:"-"`
	Reporter *User `gorm:"foreignKey:ReporterID" json:"-"`
}
