package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Routes is the HTTP surface. Files is nil unless résumés live on local
// disk; Search may carry a nil index.
type Routes struct {
	Sessions    *SessionHandler
	Reports     *ReportHandler
	Candidates  *CandidateHandler
	Search      *SearchHandler
	Files       *FileHandler
	AgentAPIKey string
}

func (r Routes) Register(app *fiber.App) {
	agentOnly := RequireAPIKey(r.AgentAPIKey)

	// Routes consumed by the web client and the interview agent
	app.Post("/api/connection-details", r.Sessions.HandleConnectionDetails)
	app.Post("/api/interview-result", agentOnly, r.Reports.HandleInterviewResult)

	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/rooms/:roomId/candidates", r.Candidates.HandleJoinRoom)
	api.Get("/rooms/:roomId/reports/search", agentOnly, r.Search.HandleSearch)
	api.Get("/reports/:id", agentOnly, r.Reports.HandleGetReport)

	if r.Files != nil {
		app.Get("/files/:bucket/*", r.Files.HandleDownload)
	}
}
