package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepple/interview-api/internal/logger"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the report search index from the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		if batchSize <= 0 {
			return errors.New("--batch-size must be positive")
		}
		ctx := cmd.Context()

		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.close()

		if c.index == nil {
			return errors.New("QDRANT_URL is not set; nothing to reindex")
		}

		var indexed, failed int
		for offset := 0; ; offset += batchSize {
			reports, err := c.reports.FindBatch(ctx, offset, batchSize)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				break
			}

			for i := range reports {
				report := &reports[i]
				log := c.log.With(zap.String(logger.FieldReportID, report.ID.String()))

				candidate, err := c.candidates.FindByID(ctx, report.CandidateID)
				if err != nil {
					log.Warn("skipping report without candidate", zap.Error(err))
					failed++
					continue
				}

				if err := c.index.IndexReport(ctx, candidate.RoomID, report); err != nil {
					log.Error("failed to index report", zap.Error(err))
					failed++
					continue
				}
				indexed++
			}

			c.log.Info("batch indexed", zap.Int("offset", offset), zap.Int("size", len(reports)))
		}

		c.log.Info("reindex finished", zap.Int("indexed", indexed), zap.Int("failed", failed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().Int("batch-size", 50, "reports fetched per database query")
}
