package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/config"
	"github.com/sadopc/earntime/internal/logging"
	"github.com/sadopc/earntime/internal/service"
)

var (
	// Global flags
	cfgPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "earntime",
	Short: "Earn screen time by completing tasks",
	Long: `earntime keeps a coin ledger: tasks earn coins, rewards and app time
cost coins. Tracked apps are blocked when their purchased minutes run out
or while mandatory tasks are pending.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		// The TUI owns the terminal, so it logs to a file.
		logFile := ""
		if interactive(cmd) {
			logFile = cfg.Logging.File
		}
		logger, err = logging.New(cfg.Logging.Level, logFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func interactive(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "tui"
}

// openServices opens the ledger for one-shot commands. Nothing is
// presented; blocks are only logged.
func openServices() (*service.Services, error) {
	return service.Open(cfg, logger, nil)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "Config file")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(redeemCmd)
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(bonusCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
