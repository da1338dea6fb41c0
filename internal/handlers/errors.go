package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
)

// respondError logs the full error and answers with its status and a
// message that is safe to show the caller.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"error": apperr.PublicMessage(err),
	})
}
