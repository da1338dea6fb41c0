package handlers

import (
	"errors"
	"fmt"
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

type CandidateHandler struct {
	roomRepo      repositories.RoomRepository
	candidateRepo repositories.CandidateRepository
	store         services.ResumeStore
	bucket        string
	maxFileSize   int64
	log           *zap.Logger
}

func NewCandidateHandler(
	roomRepo repositories.RoomRepository,
	candidateRepo repositories.CandidateRepository,
	store services.ResumeStore,
	bucket string,
	maxFileSize int64,
	log *zap.Logger,
) *CandidateHandler {
	return &CandidateHandler{
		roomRepo:      roomRepo,
		candidateRepo: candidateRepo,
		store:         store,
		bucket:        bucket,
		maxFileSize:   maxFileSize,
		log:           logger.OrNop(log),
	}
}

// HandleJoinRoom handles POST /api/v1/rooms/:roomId/candidates
func (h *CandidateHandler) HandleJoinRoom(c *fiber.Ctx) error {
	roomID, err := uuid.Parse(c.Params("roomId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid room ID format",
		})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	resume, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume file is required",
		})
	}

	if resume.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Resume file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	ctx := c.UserContext()
	if _, err := h.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Room not found",
			})
		}
		return respondError(c, h.log, err)
	}

	ref, err := h.store.SaveResume(ctx, resume)
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidate := &models.Candidate{
		ID:        uuid.New(),
		RoomID:    roomID,
		Name:      name,
		ResumeURL: ref,
		Status:    models.CandidatePending,
	}

	if err := h.candidateRepo.Create(ctx, candidate); err != nil {
		// Cleanup uploaded file if database insert fails
		if objectPath, perr := services.ObjectPathFromRef(ref, h.bucket); perr == nil {
			if derr := h.store.DeleteObject(ctx, objectPath); derr != nil {
				h.log.Warn("failed to remove orphaned resume", zap.String("ref", ref), zap.Error(derr))
			}
		}
		return respondError(c, h.log, err)
	}

	h.log.Info("candidate joined room",
		zap.String(logger.FieldRoomID, roomID.String()),
		zap.String(logger.FieldCandidateID, candidate.ID.String()),
	)

	return c.Status(fiber.StatusCreated).JSON(models.JoinRoomResponse{
		CandidateID: candidate.ID.String(),
		RoomID:      roomID.String(),
		Status:      candidate.Status,
	})
}
