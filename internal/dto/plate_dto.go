package dto

import (
	"time"

	"github.com/platewatch/platewatch-backend/internal/models"
)

// PlateWithStats is one row of the plate leaderboard: a plate plus the
// aggregates derived from its reports. AverageRating and LastReported are
// null for plates that have no reports yet.
type PlateWithStats struct {
	ID            uint      `json:"id"`
	LicenseNumber string    `json:"license_number"`
	CreatedAt     time.Time `json:"created_at"`
	ReportCount   int64     `json:"report_count"`
	AverageRating *float64  `json:"average_rating"`
	LastReported  NullTime  `json:"last_reported"`
}

type PlateDetail struct {
	ID            uint            `json:"id"`
	LicenseNumber string          `json:"license_number"`
	CreatedAt     time.Time       `json:"created_at"`
	Reports       []models.Report `json:"reports"`
}

type AnalyzeImageRequest struct {
	ImageURL string `json:"image_url"`
}

type AnalyzeImageResponse struct {
	LicenseNumber string `json:"license_number"`
}
