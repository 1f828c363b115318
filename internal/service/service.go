// Package service wires the store, the engines and the platform adapters
// into one unit shared by the CLI commands and the TUI.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/earntime/internal/blocker"
	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/config"
	"github.com/sadopc/earntime/internal/ledger"
	"github.com/sadopc/earntime/internal/platform"
	"github.com/sadopc/earntime/internal/reset"
	"github.com/sadopc/earntime/internal/rewards"
	"github.com/sadopc/earntime/internal/scheduler"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/tasks"
	"github.com/sadopc/earntime/internal/usage"
)

// Services holds one of everything. Resolver and Poller are nil when built
// with New and no adapters.
type Services struct {
	Config   *config.Config
	Calendar calendar.Calendar
	Store    *store.Store
	Ledger   *ledger.Ledger
	Tasks    *tasks.Engine
	Rewards  *rewards.Engine
	Usage    *usage.Engine
	Reset    *reset.Coordinator
	Blocker  *blocker.Engine

	Resolver *platform.FileResolver
	Poller   usage.Poller

	log *zap.Logger
}

// Open opens the database named by cfg and builds every engine with the
// file and command backed platform adapters.
func Open(cfg *config.Config, logger *zap.Logger, presenter blocker.Presenter) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	resolver := platform.NewFileResolver(cfg.Resolver.ForegroundFile, logger.Named("resolver"))
	s := New(st, cfg, cal, logger, blocker.Options{
		Resolver:  resolver,
		Enforcer:  platform.NewCommandEnforcer(cfg.Enforcer.Command, cfg.GetEnforcerTimeout()),
		Presenter: presenter,
	})
	s.Resolver = resolver
	s.Poller = platform.NewFileUsagePoller(cfg.Usage.File, cal)
	return s, nil
}

// New wires the engines around an open store. opts supplies the blocker's
// external collaborators; its windows, calendar and logger are filled in
// from cfg, cal and logger.
func New(st *store.Store, cfg *config.Config, cal calendar.Calendar, logger *zap.Logger, opts blocker.Options) *Services {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := ledger.New(st)
	u := usage.New(st, cal, logger.Named("usage"))
	t := tasks.New(st, cal, logger.Named("tasks")).EnforceCaps(cfg.Tasks.EnforceRecurrenceCaps)
	r := reset.New(st, u, l, cal, logger.Named("reset"))

	opts.ShortWindow = cfg.GetShortWindow()
	opts.LongWindow = cfg.GetLongWindow()
	opts.Calendar = cal
	opts.Logger = logger.Named("blocker")

	return &Services{
		Config:   cfg,
		Calendar: cal,
		Store:    st,
		Ledger:   l,
		Tasks:    t,
		Rewards:  rewards.New(st, cal, logger.Named("rewards")),
		Usage:    u,
		Reset:    r,
		Blocker:  blocker.New(st, t, u, r, opts),
		log:      logger,
	}
}

func (s *Services) Close() error {
	return s.Store.Close()
}

// Jobs returns the periodic work: the decision cycle and, when a poller is
// configured, the usage sync for today.
func (s *Services) Jobs() []scheduler.Job {
	jobs := []scheduler.Job{{
		Name:  "decide",
		Every: s.Config.GetDecisionInterval(),
		Run: func(ctx context.Context) error {
			d, err := s.Blocker.Evaluate(ctx)
			if err != nil {
				return err
			}
			if d.Action == blocker.ActionBlock {
				s.log.Info("blocked",
					zap.String("package", d.Package),
					zap.String("reason", string(d.Reason)),
					zap.Int64("remaining", d.Remaining))
			}
			return nil
		},
	}}
	if s.Poller != nil {
		jobs = append(jobs, scheduler.Job{
			Name:  "usage",
			Every: s.Config.GetUsageInterval(),
			Run: func(ctx context.Context) error {
				return s.Usage.SyncUsage(ctx, s.Poller, s.Calendar.Today())
			},
		})
	}
	return jobs
}

// Run drives the scheduler and the foreground file watcher until ctx is
// done or one of them fails.
func (s *Services) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.New(s.log.Named("scheduler"), s.Jobs()...).Run(ctx)
	})
	if s.Resolver != nil {
		g.Go(func() error {
			return s.Resolver.Watch(ctx)
		})
	}
	return g.Wait()
}

// Balance is a shorthand for the derived coin balance.
func (s *Services) Balance() (int64, error) {
	return s.Ledger.Balance()
}

// Redeem redeems rewardID. The balance is checked in the same transaction
// as the insert.
func (s *Services) Redeem(rewardID string) (*store.RewardRedemption, error) {
	return s.Rewards.Redeem(rewardID)
}

// Purchase buys minutes for appID; see usage.Engine.PurchaseMinutes.
func (s *Services) Purchase(appID string, minutes int64) (*store.UsagePurchase, error) {
	return s.Usage.PurchaseMinutes(appID, minutes)
}

// Report is the per-day flow shown in the reports view.
type Report struct {
	Coins []store.DailyCoins
	Usage map[string]int64 // minutes per date across all apps
}

// DailyReport summarizes the n days ending with the day of end.
func (s *Services) DailyReport(end string, n int) (*Report, error) {
	t, err := s.Calendar.ParseDate(end)
	if err != nil {
		return nil, err
	}
	days := s.Calendar.Days(t, n)
	if len(days) == 0 {
		return &Report{Usage: map[string]int64{}}, nil
	}
	from, to := days[0], days[len(days)-1]

	execs, err := s.Store.ListExecutionsBetween(from, to)
	if err != nil {
		return nil, err
	}
	reds, err := s.Store.ListRedemptions()
	if err != nil {
		return nil, err
	}
	purs, err := s.Store.ListPurchases()
	if err != nil {
		return nil, err
	}
	aggs, err := s.Store.ListUsageBetween(from, to)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Coins: ledger.Daily(days, s.Calendar.Location, execs, reds, purs),
		Usage: make(map[string]int64, len(days)),
	}
	for _, a := range aggs {
		rep.Usage[a.Date] += a.UsedMinutesAutomatic
	}
	return rep, nil
}
