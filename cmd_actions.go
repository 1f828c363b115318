package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/earntime/internal/rewards"
	"github.com/sadopc/earntime/internal/service"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/tasks"
)

var (
	skipTask   bool
	buyMinutes int64
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the current coin balance",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

var completeCmd = &cobra.Command{
	Use:   "complete <task>",
	Short: "Record a task as done (or skipped with --skip)",
	Long: `Records today's execution of a task, named by id or by name. Done
executions earn the task's reward; skipped ones earn nothing but still
satisfy the mandatory gate.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

var redeemCmd = &cobra.Command{
	Use:   "redeem <reward>",
	Short: "Spend coins on a reward",
	Args:  cobra.ExactArgs(1),
	RunE:  runRedeem,
}

var buyCmd = &cobra.Command{
	Use:   "buy <package>",
	Short: "Buy app minutes for a tracked package",
	Long: `Buys minutes for the tracked app with the given package id. The cost
is floor(cost per minute × minutes) coins.

Example:
  earntime buy com.example.video --minutes 30`,
	Args: cobra.ExactArgs(1),
	RunE: runBuy,
}

var bonusCmd = &cobra.Command{
	Use:   "bonus <coins> [reason]",
	Short: "Grant bonus coins",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBonus,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance, today's tasks and app time",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	completeCmd.Flags().BoolVar(&skipTask, "skip", false, "Record the task as skipped")
	buyCmd.Flags().Int64VarP(&buyMinutes, "minutes", "m", 0, "Minutes to buy (default from config)")
}

func runBalance(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	bal, err := svc.Balance()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), bal)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	def, err := findTask(svc, args[0])
	if err != nil {
		return err
	}
	exec, err := svc.Tasks.CompleteTask(def.ID, skipTask)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if skipTask {
		fmt.Fprintf(out, "Skipped %s\n", def.Name)
		return nil
	}
	fmt.Fprintf(out, "Completed %s: +%d\n", def.Name, exec.CoinsAwarded)
	return nil
}

func runRedeem(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	reward, err := findReward(svc, args[0])
	if err != nil {
		return err
	}
	red, err := svc.Redeem(reward.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Redeemed %s: -%d\n", reward.Name, red.CoinsSpent)
	return nil
}

func runBuy(cmd *cobra.Command, args []string) error {
	minutes := buyMinutes
	if minutes == 0 {
		minutes = cfg.Purchase.DefaultMinutes
	}
	if minutes < 0 {
		return fmt.Errorf("minutes must be positive")
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.Blocker.BuyMoreTime(cmd.Context(), args[0], minutes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bought %d minutes of %s: -%d\n", p.MinutesPurchased, args[0], p.CoinsSpent)
	return nil
}

func runBonus(cmd *cobra.Command, args []string) error {
	coins, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("coins %q: %w", args[0], err)
	}
	reason := ""
	if len(args) > 1 {
		reason = args[1]
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.Tasks.GrantBonus(reason, coins); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Granted %d\n", coins)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	today := svc.Calendar.Today()
	bal, err := svc.Balance()
	if err != nil {
		return err
	}
	progress, err := svc.Tasks.TodayProgress(today)
	if err != nil {
		return err
	}
	apps, err := svc.Usage.Overview(today)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Date:    %s\n", today)
	fmt.Fprintf(out, "Balance: %d\n", bal)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Tasks:")
	if len(progress) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, p := range progress {
		flag := " "
		if p.Task.Mandatory {
			flag = "!"
		}
		limit := "∞"
		if c := tasks.Cap(p.Task); c >= 0 {
			limit = strconv.Itoa(c)
		}
		fmt.Fprintf(out, "  %s %-24s %d/%s done, %d skipped\n", flag, p.Task.Name, p.Done, limit, p.Skipped)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Apps:")
	if len(apps) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, s := range apps {
		override := ""
		if s.App.NightOverrideEnabled {
			override = "  night override"
		}
		fmt.Fprintf(out, "  %-20s %-28s used %4d  limit %4d  left %4d%s\n",
			s.App.Name, s.App.PackageName, s.Used, s.Limit, s.Remaining, override)
	}
	return nil
}

// findTask resolves ref as an active task id, then as a case-insensitive
// name.
func findTask(svc *service.Services, ref string) (*store.TaskDefinition, error) {
	defs, err := svc.Tasks.ListTasks(false)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].ID == ref {
			return &defs[i], nil
		}
	}
	for i := range defs {
		if strings.EqualFold(defs[i].Name, ref) {
			return &defs[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, tasks.ErrNotFound)
}

func findReward(svc *service.Services, ref string) (*store.RewardDefinition, error) {
	defs, err := svc.Rewards.ListRewards(false)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].ID == ref {
			return &defs[i], nil
		}
	}
	for i := range defs {
		if strings.EqualFold(defs[i].Name, ref) {
			return &defs[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, rewards.ErrNotFound)
}
