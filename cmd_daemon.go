package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/blocker"
	"github.com/sadopc/earntime/internal/service"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the decision loop without a user interface",
	Long: `Runs the decision cycle and the usage sync until interrupted.
Block decisions are enforced through the configured command and logged.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	presenter := blocker.PresenterFunc(func(d blocker.Decision) {
		if d.Action == blocker.ActionDismiss {
			logger.Info("block dismissed", zap.String("package", d.Package))
		}
	})

	svc, err := service.Open(cfg, logger, presenter)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("daemon started",
		zap.String("database", cfg.DatabasePath),
		zap.Duration("decision_interval", cfg.GetDecisionInterval()),
		zap.Duration("usage_interval", cfg.GetUsageInterval()))

	err = svc.Run(ctx)
	diag := svc.Blocker.Diagnostics().Snapshot()
	logger.Info("daemon stopped",
		zap.Int64("cycles", diag.Cycles),
		zap.Stringer("last_state", diag.LastState))

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
