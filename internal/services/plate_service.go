package services

import (
	"context"
	"errors"
	"strings"

	"github.com/platewatch/platewatch-backend/internal/dto"
	"github.com/platewatch/platewatch-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPlateNotFound = errors.New("plate not found")
	ErrEmptyPlate    = errors.New("license plate is required")
	ErrInvalidSort   = errors.New("sort must be one of worst, recent, popular")
)

// Plate list sort orders.
const (
	SortWorst   = "worst"   // average rating descending, unrated plates last
	SortRecent  = "recent"  // plate creation time descending
	SortPopular = "popular" // report count descending
)

// PlateService is the plate registry and the aggregation engine over reports.
type PlateService struct {
	db *gorm.DB
}

func NewPlateService(db *gorm.DB) *PlateService {
	return &PlateService{db: db}
}

// NormalizePlate reduces raw plate text to its canonical stored form:
// uppercase alphanumerics only. Lookup and uniqueness both operate on the
// normalized form, so case-insensitive matching falls out of exact matching.
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveOrCreate maps plate text to its Plate record, creating one on first
// reference.
func (s *PlateService) ResolveOrCreate(ctx context.Context, licenseNumber string) (*models.Plate, error) {
	return resolveOrCreatePlate(s.db.WithContext(ctx), licenseNumber)
}

// resolveOrCreatePlate runs against the given handle so report submission can
// call it inside its own transaction. Two concurrent first-time submissions
// of the same text race on the insert; the unique index on license_number
// arbitrates, and the loser re-reads the winner's row.
func resolveOrCreatePlate(db *gorm.DB, licenseNumber string) (*models.Plate, error) {
	normalized := NormalizePlate(licenseNumber)
	if normalized == "" {
		return nil, ErrEmptyPlate
	}

	var plate models.Plate
	err := db.Where("license_number = ?", normalized).First(&plate).Error
	if err == nil {
		return &plate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plate = models.Plate{LicenseNumber: normalized}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "license_number"}},
		DoNothing: true,
	}).Create(&plate)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race; the concurrent writer's row is authoritative.
		if err := db.Where("license_number = ?", normalized).First(&plate).Error; err != nil {
			return nil, err
		}
	}
	return &plate, nil
}

// GetByNumber looks a plate up by its normalized text.
func (s *PlateService) GetByNumber(ctx context.Context, licenseNumber string) (*models.Plate, error) {
	normalized := NormalizePlate(licenseNumber)
	if normalized == "" {
		return nil, ErrEmptyPlate
	}

	var plate models.Plate
	err := s.db.WithContext(ctx).Where("license_number = ?", normalized).First(&plate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plate, nil
}

// ListWithStats returns every plate matching the optional search substring,
// each with its report count, average rating and last-reported time. Plates
// with zero reports are included with count 0 and null average/last-reported.
func (s *PlateService) ListWithStats(ctx context.Context, sort, search string) ([]dto.PlateWithStats, error) {
	query := s.db.WithContext(ctx).
		Table("plates").
		Select("plates.id, plates.license_number, plates.created_at, " +
			"COUNT(reports.id) AS report_count, " +
			"AVG(reports.rating) AS average_rating, " +
			"MAX(reports.created_at) AS last_reported").
		Joins("LEFT JOIN reports ON reports.plate_id = plates.id").
		Group("plates.id, plates.license_number, plates.created_at")

	if search != "" {
		query = query.Where("LOWER(plates.license_number) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	switch sort {
	case SortWorst:
		query = query.Order("AVG(reports.rating) DESC NULLS LAST")
	case SortPopular:
		query = query.Order("COUNT(reports.id) DESC")
	case SortRecent, "":
		query = query.Order("plates.created_at DESC")
	default:
		return nil, ErrInvalidSort
	}

	rows := make([]dto.PlateWithStats, 0)
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDetail returns a plate with its full report list, newest first.
func (s *PlateService) GetDetail(ctx context.Context, id uint) (*dto.PlateDetail, error) {
	var plate models.Plate
	err := s.db.WithContext(ctx).First(&plate, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlateNotFound
	}
	if err != nil {
		return nil, err
	}

	reports := make([]models.Report, 0)
	if err := s.db.WithContext(ctx).
		Where("plate_id = ?", plate.ID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}

	return &dto.PlateDetail{
		ID:            plate.ID,
		LicenseNumber: plate.LicenseNumber,
		CreatedAt:     plate.CreatedAt,
		Reports:       reports,
	}, nil
}
