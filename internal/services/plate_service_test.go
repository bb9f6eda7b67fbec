package services

import (
	"context"
	"sync"
	"testing"

	"github.com/platewatch/platewatch-backend/internal/dto"
	"github.com/platewatch/platewatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ptrString(s string) *string { return &s }

// setupTestDB opens an in-memory SQLite database and migrates every model
// the services touch. A single connection keeps the shared memory database
// alive for the whole test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Plate{},
		&models.Report{},
	))
	return db
}

func submitReport(t *testing.T, svc *ReportService, plate string, rating int, carMake, location *string) *models.Report {
	t.Helper()
	report, err := svc.Create(context.Background(), nil, &dto.CreateReportRequest{
		LicenseNumber: plate,
		ImageURL:      "https://img.example/" + plate + ".jpg",
		Rating:        rating,
		CarMake:       carMake,
		Location:      location,
	})
	require.NoError(t, err)
	return report
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "7ABC123", NormalizePlate(" 7abc-123 "))
	assert.Equal(t, "XYZ999", NormalizePlate("xyz 999"))
	assert.Equal(t, "", NormalizePlate("---"))
	assert.Equal(t, "", NormalizePlate(""))
}

func TestResolveOrCreate_SamePlateOnce(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	// Three submissions against the same plate text with different casing
	submitReport(t, reports, "xyz999", 5, nil, nil)
	submitReport(t, reports, "XYZ-999", 3, nil, nil)
	submitReport(t, reports, " xyz 999 ", 1, nil, nil)

	var plateCount int64
	require.NoError(t, db.Model(&models.Plate{}).Count(&plateCount).Error)
	assert.EqualValues(t, 1, plateCount)

	plate, err := plates.GetByNumber(context.Background(), "XYZ999")
	require.NoError(t, err)

	var reportCount int64
	require.NoError(t, db.Model(&models.Report{}).Where("plate_id = ?", plate.ID).Count(&reportCount).Error)
	assert.EqualValues(t, 3, reportCount)
}

func TestResolveOrCreate_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPlateService(db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ResolveOrCreate(context.Background(), "RACE42")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.Plate{}).Where("license_number = ?", "RACE42").Count(&count).Error)
	assert.EqualValues(t, 1, count, "concurrent first-time submissions must create exactly one plate")
}

func TestResolveOrCreate_EmptyPlate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPlateService(db)

	_, err := svc.ResolveOrCreate(context.Background(), "  --- ")
	assert.ErrorIs(t, err, ErrEmptyPlate)
}

func TestListWithStats_SortWorst(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	// XYZ999 averages 3.0 over three reports
	submitReport(t, reports, "XYZ999", 5, nil, nil)
	submitReport(t, reports, "XYZ999", 3, nil, nil)
	submitReport(t, reports, "XYZ999", 1, nil, nil)
	// AAA111 averages 5.0 over one report
	submitReport(t, reports, "AAA111", 5, nil, nil)
	// BBB222 has no reports at all
	_, err := plates.ResolveOrCreate(context.Background(), "BBB222")
	require.NoError(t, err)

	rows, err := plates.ListWithStats(context.Background(), SortWorst, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "AAA111", rows[0].LicenseNumber)
	require.NotNil(t, rows[0].AverageRating)
	assert.InDelta(t, 5.0, *rows[0].AverageRating, 1e-9)

	assert.Equal(t, "XYZ999", rows[1].LicenseNumber)
	require.NotNil(t, rows[1].AverageRating)
	assert.InDelta(t, 3.0, *rows[1].AverageRating, 1e-9)
	assert.EqualValues(t, 3, rows[1].ReportCount)
	assert.True(t, rows[1].LastReported.Valid)

	// Plates with no reports sort last regardless of direction
	assert.Equal(t, "BBB222", rows[2].LicenseNumber)
	assert.Nil(t, rows[2].AverageRating)
	assert.EqualValues(t, 0, rows[2].ReportCount)
	assert.False(t, rows[2].LastReported.Valid)
}

func TestListWithStats_SortPopular(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	submitReport(t, reports, "POP111", 2, nil, nil)
	submitReport(t, reports, "POP111", 2, nil, nil)
	submitReport(t, reports, "POP111", 2, nil, nil)
	submitReport(t, reports, "LOW222", 5, nil, nil)

	rows, err := plates.ListWithStats(context.Background(), SortPopular, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "POP111", rows[0].LicenseNumber)
	assert.EqualValues(t, 3, rows[0].ReportCount)
	assert.Equal(t, "LOW222", rows[1].LicenseNumber)
}

func TestListWithStats_Search(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	submitReport(t, reports, "7ABC123", 4, nil, nil)
	submitReport(t, reports, "9DEF456", 2, nil, nil)

	rows, err := plates.ListWithStats(context.Background(), SortRecent, "abc")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7ABC123", rows[0].LicenseNumber)
}

func TestListWithStats_InvalidSort(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPlateService(db)

	_, err := svc.ListWithStats(context.Background(), "loudest", "")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestGetDetail_AverageMatchesListView(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	submitReport(t, reports, "CONS1", 5, nil, nil)
	submitReport(t, reports, "CONS1", 2, nil, nil)

	rows, err := plates.ListWithStats(context.Background(), SortWorst, "CONS1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].AverageRating)

	detail, err := plates.GetDetail(context.Background(), rows[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, detail.Reports)

	var sum float64
	for _, r := range detail.Reports {
		sum += float64(r.Rating)
	}
	recomputed := sum / float64(len(detail.Reports))
	assert.InDelta(t, recomputed, *rows[0].AverageRating, 1e-9)
}

func TestGetDetail_ReportsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	plates := NewPlateService(db)
	reports := NewReportService(db)

	first := submitReport(t, reports, "ORDER1", 1, nil, nil)
	second := submitReport(t, reports, "ORDER1", 2, nil, nil)

	detail, err := plates.GetDetail(context.Background(), first.PlateID)
	require.NoError(t, err)
	require.Len(t, detail.Reports, 2)
	assert.False(t, detail.Reports[0].CreatedAt.Before(detail.Reports[1].CreatedAt))
	_ = second
}

func TestGetDetail_NotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPlateService(db)

	_, err := svc.GetDetail(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrPlateNotFound)
}
