package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
	"prepple/interview-api/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
	log      *zap.Logger
}

func NewSessionHandler(sessions services.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      logger.OrNop(log),
	}
}

// HandleConnectionDetails handles POST /api/connection-details
func (h *SessionHandler) HandleConnectionDetails(c *fiber.Ctx) error {
	// Grants are single use; intermediaries must never replay one.
	c.Set(fiber.HeaderCacheControl, "no-store")

	var req models.ConnectionDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.CandidateID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Room ID and Candidate ID are required",
		})
	}

	roomID, candidateID, err := parseIDs(req.RoomID, req.CandidateID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	details, err := h.sessions.ConnectionDetails(c.UserContext(), roomID, candidateID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(details)
}

func parseIDs(roomRaw, candidateRaw string) (uuid.UUID, uuid.UUID, error) {
	roomID, err := uuid.Parse(strings.TrimSpace(roomRaw))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: roomId is not a valid id", apperr.ErrInput)
	}
	candidateID, err := uuid.Parse(strings.TrimSpace(candidateRaw))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: candidateId is not a valid id", apperr.ErrInput)
	}
	return roomID, candidateID, nil
}
