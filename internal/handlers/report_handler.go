package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/platewatch/platewatch-backend/internal/config"
	"github.com/platewatch/platewatch-backend/internal/dto"
	"github.com/platewatch/platewatch-backend/internal/middleware"
	"github.com/platewatch/platewatch-backend/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
	cfg           *config.Config
}

func NewReportHandler(reportService *services.ReportService, cfg *config.Config) *ReportHandler {
	return &ReportHandler{reportService: reportService, cfg: cfg}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var reporterID *uuid.UUID
	if id, err := middleware.UserID(c); err == nil {
		reporterID = &id
	}
	if reporterID == nil && !h.cfg.AllowAnonymousReports {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Sign in to submit a report",
		})
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reportService.Create(c.UserContext(), reporterID, &req)
	if err != nil {
		if field, ok := validationField(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(), Field: field,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create report",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) Recent(c *fiber.Ctx) error {
	reports, err := h.reportService.Recent(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}
	return c.JSON(reports)
}

func (h *ReportHandler) BrandStats(c *fiber.Ctx) error {
	stats, err := h.reportService.BrandStats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch brand stats",
		})
	}
	return c.JSON(stats)
}

func (h *ReportHandler) LocationStats(c *fiber.Ctx) error {
	stats, err := h.reportService.LocationStats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch location stats",
		})
	}
	return c.JSON(stats)
}

// validationField maps validation errors to the offending request field.
func validationField(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrInvalidRating):
		return "rating", true
	case errors.Is(err, services.ErrMissingImage):
		return "image_url", true
	case errors.Is(err, services.ErrEmptyPlate):
		return "license_number", true
	}
	return "", false
}
