package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/service"
	"github.com/sadopc/earntime/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive dashboard (default)",
	Long: `Starts the dashboard together with the decision loop. Block decisions
are shown as an overlay in the dashboard.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	presenter := tui.NewPresenter()
	svc, err := service.Open(cfg, logger, presenter)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("decision loop stopped", zap.Error(err))
		}
	}()

	p := tea.NewProgram(tui.NewApp(svc, presenter.Decisions()), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()

	cancel()
	<-loopDone
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
