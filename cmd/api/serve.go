package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepple/interview-api/internal/config"
	"prepple/interview-api/internal/handlers"
	"prepple/interview-api/internal/models"
	"prepple/interview-api/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	cfg := c.cfg
	log := c.log

	grants, err := services.NewSessionGrantIssuer(cfg.LiveKit)
	if err != nil {
		return err
	}

	broker := services.NewAccessBroker(c.store, cfg.Storage.Bucket)
	extractor := services.NewDocumentTextExtractor(cfg.Storage.MaxFileSize, log.Named("extractor"))
	evaluator := services.NewEvaluationClient(c.gemini, cfg.Gemini.CorrectiveRetries, log.Named("evaluator"))

	coordinator := services.NewReportCoordinator(
		c.rooms,
		c.candidates,
		c.reports,
		broker,
		extractor,
		services.NewContractBuilder(),
		evaluator,
		c.index,
		services.ReportCoordinatorOptions{
			ResumeURLTTL:    cfg.Storage.ResumeURLTTL,
			DuplicatePolicy: models.DuplicateReportPolicy(cfg.Reports.DuplicatePolicy),
		},
		log.Named("reports"),
	)
	sessions := services.NewSessionService(c.rooms, c.candidates, broker, grants, log.Named("sessions"))

	reconciler := services.NewReconciler(c.reports, log)
	if cfg.Reports.ReconcileInterval > 0 {
		reconciler.Start(ctx, cfg.Reports.ReconcileInterval)
		defer reconciler.Stop()
	}

	routes := handlers.Routes{
		Sessions:    handlers.NewSessionHandler(sessions, log),
		Reports:     handlers.NewReportHandler(coordinator, c.reports, log),
		Candidates:  handlers.NewCandidateHandler(c.rooms, c.candidates, c.store, cfg.Storage.Bucket, cfg.Storage.MaxFileSize, log),
		Search:      handlers.NewSearchHandler(c.index, log),
		AgentAPIKey: cfg.Agent.APIKey,
	}
	if c.local != nil {
		routes.Files = handlers.NewFileHandler(c.local, cfg.Storage.Bucket, log)
	}

	app := newApp(cfg, log)
	routes.Register(app)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Interview Evaluation API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/connection-details",
				"POST /api/interview-result",
				"POST /api/v1/rooms/:roomId/candidates",
				"GET /api/v1/rooms/:roomId/reports/search",
				"GET /api/v1/reports/:id",
				"GET /api/v1/health",
			},
		})
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("public_url", cfg.Server.PublicURL))

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func newApp(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "Interview Evaluation API",
		ReadTimeout: 30 * time.Second,
		// Finalizing a report waits on the model, including retries.
		WriteTimeout: cfg.Gemini.Timeout*time.Duration(cfg.Gemini.MaxRetries+cfg.Gemini.CorrectiveRetries+1) + 30*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, x-api-key",
	}))

	return app
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
			"code":  code,
		})
	}
}
