package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
	"prepple/interview-api/internal/repositories"
	"prepple/interview-api/internal/services"
)

type ReportHandler struct {
	coordinator services.ReportCoordinator
	reportRepo  repositories.ReportRepository
	log         *zap.Logger
}

func NewReportHandler(
	coordinator services.ReportCoordinator,
	reportRepo repositories.ReportRepository,
	log *zap.Logger,
) *ReportHandler {
	return &ReportHandler{
		coordinator: coordinator,
		reportRepo:  reportRepo,
		log:         logger.OrNop(log),
	}
}

// HandleInterviewResult handles POST /api/interview-result
func (h *ReportHandler) HandleInterviewResult(c *fiber.Ctx) error {
	var req models.InterviewResultRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.CandidateID) == "" ||
		missingJSON(req.SessionHistory) || missingJSON(req.UsageMetrics) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	roomID, candidateID, err := parseIDs(req.RoomID, req.CandidateID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	reportID, err := h.coordinator.Finalize(c.UserContext(), roomID, candidateID, req.SessionHistory, req.UsageMetrics)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.InterviewResultResponse{ReportID: reportID.String()})
}

// HandleGetReport handles GET /api/v1/reports/:id
func (h *ReportHandler) HandleGetReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID format",
		})
	}

	report, err := h.reportRepo.FindByID(c.UserContext(), reportID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Report not found",
			})
		}
		return respondError(c, h.log, err)
	}

	return c.JSON(report)
}

func missingJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
