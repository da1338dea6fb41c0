package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepple/interview-api/internal/services"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Link reports whose candidate was never updated",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.close()

		linked, err := services.NewReconciler(c.reports, c.log).RunOnce(ctx)
		if err != nil {
			return err
		}

		c.log.Info("reconcile finished", zap.Int("linked", linked))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
