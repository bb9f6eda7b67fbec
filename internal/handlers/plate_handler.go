package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/platewatch/platewatch-backend/internal/dto"
	"github.com/platewatch/platewatch-backend/internal/services"
)

// maxAnalyzePayload bounds the encoded image accepted by Analyze. Roughly a
// 5MB image after base64 overhead. Checked before the vision provider is
// invoked, since every provider call is billed.
const maxAnalyzePayload = 7 * 1024 * 1024

type PlateHandler struct {
	plateService *services.PlateService
	recognizer   services.PlateRecognizer
}

func NewPlateHandler(plateService *services.PlateService, recognizer services.PlateRecognizer) *PlateHandler {
	return &PlateHandler{plateService: plateService, recognizer: recognizer}
}

func (h *PlateHandler) List(c *fiber.Ctx) error {
	sort := c.Query("sort", services.SortRecent)
	search := c.Query("search")

	plates, err := h.plateService.ListWithStats(c.UserContext(), sort, search)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSort) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(), Field: "sort",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch plates",
		})
	}

	return c.JSON(plates)
}

func (h *PlateHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid plate ID", Field: "id",
		})
	}

	plate, err := h.plateService.GetDetail(c.UserContext(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrPlateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Plate not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch plate",
		})
	}

	return c.JSON(plate)
}

func (h *PlateHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeImageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if req.ImageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "image_url is required", Field: "image_url",
		})
	}
	if len(req.ImageURL) > maxAnalyzePayload {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Image is too large. Please upload an image under 5MB.", Field: "image_url",
		})
	}

	plate, err := h.recognizer.RecognizePlate(c.UserContext(), req.ImageURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to analyze image. Please try a smaller file or a clearer photo.",
		})
	}

	return c.JSON(dto.AnalyzeImageResponse{LicenseNumber: plate})
}
