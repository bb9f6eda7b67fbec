package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/platewatch/platewatch-backend/internal/dto"
	"github.com/platewatch/platewatch-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidRating = errors.New("rating must be an integer between 1 and 5")
	ErrMissingImage  = errors.New("image reference is required")
)

const (
	recentReportsLimit = 10
	brandStatsLimit    = 10
	locationStatsLimit = 10
)

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Create validates the submission, resolves or creates the plate and inserts
// the report in a single transaction, so a report can never reference a
// plate whose creation failed. reporterID is nil for anonymous submissions.
func (s *ReportService) Create(ctx context.Context, reporterID *uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if req.ImageURL == "" {
		return nil, ErrMissingImage
	}
	if NormalizePlate(req.LicenseNumber) == "" {
		return nil, ErrEmptyPlate
	}

	var report *models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plate, err := resolveOrCreatePlate(tx, req.LicenseNumber)
		if err != nil {
			return err
		}

		report = &models.Report{
			PlateID:    plate.ID,
			ReporterID: reporterID,
			ImageURL:   req.ImageURL,
			CarMake:    emptyToNil(req.CarMake),
			Rating:     req.Rating,
			Comment:    emptyToNil(req.Comment),
			Location:   emptyToNil(req.Location),
		}
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Recent returns the newest reports across all plates, capped for the feed.
func (s *ReportService) Recent(ctx context.Context) ([]models.Report, error) {
	reports := make([]models.Report, 0, recentReportsLimit)
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(recentReportsLimit).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// BrandStats groups all reports that carry a car make and returns the most
// reported brands with their average rating.
func (s *ReportService) BrandStats(ctx context.Context) ([]dto.BrandStats, error) {
	rows := make([]dto.BrandStats, 0, brandStatsLimit)
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("car_make AS make, COUNT(id) AS report_count, AVG(rating) AS average_rating").
		Where("car_make IS NOT NULL AND car_make <> ''").
		Group("car_make").
		Order("COUNT(id) DESC").
		Limit(brandStatsLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LocationStats tallies reports per location over the whole table, not just
// a recent window.
func (s *ReportService) LocationStats(ctx context.Context) ([]dto.LocationStats, error) {
	rows := make([]dto.LocationStats, 0, locationStatsLimit)
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("location, COUNT(id) AS report_count").
		Where("location IS NOT NULL AND location <> ''").
		Group("location").
		Order("COUNT(id) DESC").
		Limit(locationStatsLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
