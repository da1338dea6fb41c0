package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"prepple/interview-api/internal/logger"
)

// TokenResolver maps a signed download token to the local file it grants.
type TokenResolver interface {
	ResolveToken(objectPath, token string) (string, error)
}

type FileHandler struct {
	resolver TokenResolver
	bucket   string
	log      *zap.Logger
}

func NewFileHandler(resolver TokenResolver, bucket string, log *zap.Logger) *FileHandler {
	return &FileHandler{
		resolver: resolver,
		bucket:   bucket,
		log:      logger.OrNop(log),
	}
}

// HandleDownload handles GET /files/:bucket/*
func (h *FileHandler) HandleDownload(c *fiber.Ctx) error {
	if c.Params("bucket") != h.bucket {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	}

	objectPath := c.Params("*")
	token := c.Query("token")
	if objectPath == "" || token == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Missing download token",
		})
	}

	localPath, err := h.resolver.ResolveToken(objectPath, token)
	if err != nil {
		h.log.Info("download refused", zap.String("object", objectPath), zap.Error(err))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Download link is invalid or expired",
		})
	}

	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.SendFile(localPath)
}
