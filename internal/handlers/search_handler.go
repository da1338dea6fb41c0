package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/services"
)

const defaultSearchLimit = 5

type SearchHandler struct {
	index services.ReportIndex
	log   *zap.Logger
}

// NewSearchHandler serves report search. index may be nil when no vector
// store is configured; every search then answers 503.
func NewSearchHandler(index services.ReportIndex, log *zap.Logger) *SearchHandler {
	return &SearchHandler{
		index: index,
		log:   logger.OrNop(log),
	}
}

// HandleSearch handles GET /api/v1/rooms/:roomId/reports/search
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	if h.index == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Report search is not enabled",
		})
	}

	roomID, err := uuid.Parse(c.Params("roomId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid room ID format",
		})
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	hits, err := h.index.Search(c.UserContext(), roomID, query, c.QueryInt("limit", defaultSearchLimit))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"results": hits,
	})
}
