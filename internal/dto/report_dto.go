package dto

type CreateReportRequest struct {
	LicenseNumber string  `json:"license_number"`
	ImageURL      string  `json:"image_url"`
	Rating        int     `json:"rating"`
	CarMake       *string `json:"car_make,omitempty"`
	Comment       *string `json:"comment,omitempty"`
	Location      *string `json:"location,omitempty"`
}

// BrandStats is one row of the worst-brands leaderboard, grouped over all
// reports that carry a car make.
type BrandStats struct {
	Make          string  `json:"make"`
	ReportCount   int64   `json:"report_count"`
	AverageRating float64 `json:"average_rating"`
}

// LocationStats is one row of the worst-locations leaderboard, grouped over
// all reports that carry a location.
type LocationStats struct {
	Location    string `json:"location"`
	ReportCount int64  `json:"report_count"`
}
