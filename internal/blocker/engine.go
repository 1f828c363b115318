// Package blocker decides, once per cycle, whether the foreground app may
// keep running.
package blocker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/reset"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/tasks"
	"github.com/sadopc/earntime/internal/usage"
)

const (
	DefaultShortWindow = time.Minute
	DefaultLongWindow  = 24 * time.Hour
)

// Options carries the collaborators that live outside the ledger. Nil
// Enforcer and Presenter are no-ops; a nil Resolver never observes anything.
type Options struct {
	Resolver    Resolver
	Enforcer    Enforcer
	Presenter   Presenter
	ShortWindow time.Duration
	LongWindow  time.Duration
	Calendar    calendar.Calendar
	Logger      *zap.Logger
}

type Engine struct {
	st     *store.Store
	tasks  *tasks.Engine
	usage  *usage.Engine
	reset  *reset.Coordinator

	resolver  Resolver
	enforcer  Enforcer
	presenter Presenter
	short     time.Duration
	long      time.Duration
	cal       calendar.Calendar
	log       *zap.Logger

	diag Diagnostics

	mu    sync.Mutex
	shown map[string]Decision // block on screen, by package
}

func New(st *store.Store, t *tasks.Engine, u *usage.Engine, r *reset.Coordinator, opts Options) *Engine {
	e := &Engine{
		st:        st,
		tasks:     t,
		usage:     u,
		reset:     r,
		resolver:  opts.Resolver,
		enforcer:  opts.Enforcer,
		presenter: opts.Presenter,
		short:     opts.ShortWindow,
		long:      opts.LongWindow,
		cal:       opts.Calendar,
		log:       opts.Logger,
		shown:     make(map[string]Decision),
	}
	if e.short <= 0 {
		e.short = DefaultShortWindow
	}
	if e.long <= 0 {
		e.long = DefaultLongWindow
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Diagnostics exposes the engine's status read model.
func (e *Engine) Diagnostics() DiagnosticsReader {
	return &e.diag
}

// Evaluate runs one decision cycle. Resolver and enforcer failures are
// logged and never returned; the returned error is a persistence failure
// that aborted this cycle only.
func (e *Engine) Evaluate(ctx context.Context) (Decision, error) {
	now := e.cal.Now()
	d := Decision{At: now}
	defer func() {
		e.diag.update(func(s *Status) {
			s.LastState = d.State
			s.LastCycleAt = now
			s.Cycles++
		})
	}()

	if _, err := e.reset.RunDue(now); err != nil {
		e.log.Warn("reset housekeeping failed", zap.Error(err))
	}

	pkg := e.resolve(ctx)
	if pkg == "" {
		return d, nil
	}
	d.Package = pkg

	app, err := e.st.GetTrackedAppByPackage(pkg)
	if errors.Is(err, sql.ErrNoRows) {
		d.State = StateUnmatched
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("match %s: %w", pkg, err)
	}
	d.AppName = app.Name
	e.diag.update(func(s *Status) { s.LastTrackedAppName = app.Name })

	if e.nightOverrideActive(app, now) {
		d.State = StateNightOverrideActive
		d.Action = ActionAllow
		e.dismissIfShown(d)
		return d, nil
	}

	today := e.cal.Date(now)
	ok, err := e.tasks.MandatoryGateSatisfied(today)
	if err != nil {
		return d, fmt.Errorf("mandatory gate: %w", err)
	}
	if !ok {
		d.State = StateMandatoryPending
		d.Action = ActionBlock
		d.Reason = ReasonMandatoryPending
		e.block(ctx, d)
		return d, nil
	}

	remaining, err := e.usage.RemainingMinutes(app.ID, today)
	if err != nil {
		return d, fmt.Errorf("remaining minutes %s: %w", pkg, err)
	}
	d.Remaining = remaining
	e.diag.update(func(s *Status) { s.LastRemainingMinutes = remaining })

	if remaining <= 0 {
		d.State = StateTimeExhausted
		d.Action = ActionBlock
		d.Reason = ReasonTimeExhausted
		e.block(ctx, d)
		e.diag.update(func(s *Status) { s.LastBlockedPackage = pkg })
		return d, nil
	}

	d.State = StateTimeAvailable
	d.Action = ActionAllow
	e.dismissIfShown(d)
	return d, nil
}

func (e *Engine) resolve(ctx context.Context) string {
	if e.resolver == nil {
		e.diag.update(func(s *Status) { s.LastCheckedPackage = "" })
		return ""
	}
	pkg, ok, err := e.resolver.ForegroundPackage(ctx, e.short, e.long)
	access := !errors.Is(err, ErrNoUsageAccess)
	if err != nil {
		e.log.Warn("foreground resolver failed", zap.Error(err))
		pkg, ok = "", false
	}
	if !ok {
		pkg = ""
	}
	e.diag.update(func(s *Status) {
		s.HasUsageAccess = access
		s.LastCheckedPackage = pkg
	})
	return pkg
}

// nightOverrideActive clears an override that has expired or whose
// activation instant is unreadable.
func (e *Engine) nightOverrideActive(app *store.TrackedApp, now time.Time) bool {
	if app.NightOverrideErr != nil {
		e.log.Warn("ignoring night override", zap.String("package", app.PackageName), zap.Error(app.NightOverrideErr))
		e.clearOverride(app)
		return false
	}
	if !app.NightOverrideEnabled || app.NightOverrideActivatedAt == nil {
		return false
	}
	if now.Before(NightOverrideExpiry(*app.NightOverrideActivatedAt, e.cal)) {
		return true
	}
	e.clearOverride(app)
	return false
}

func (e *Engine) clearOverride(app *store.TrackedApp) {
	if err := e.st.ClearNightOverride(app.ID); err != nil {
		e.log.Warn("clear night override failed", zap.String("package", app.PackageName), zap.Error(err))
		return
	}
	e.log.Info("night override cleared", zap.String("package", app.PackageName))
}

func (e *Engine) block(ctx context.Context, d Decision) {
	e.mu.Lock()
	e.shown[d.Package] = d
	e.mu.Unlock()

	e.present(d)
	if e.enforcer == nil {
		return
	}
	if err := e.enforcer.Hide(ctx, d.Package); err != nil {
		e.log.Warn("hide application failed", zap.String("package", d.Package), zap.Error(err))
	}
}

func (e *Engine) dismissIfShown(d Decision) {
	e.mu.Lock()
	_, was := e.shown[d.Package]
	delete(e.shown, d.Package)
	e.mu.Unlock()
	if was {
		d.Action = ActionDismiss
		e.present(d)
	}
}

func (e *Engine) present(d Decision) {
	if e.presenter != nil {
		e.presenter.Present(d)
	}
}

// BuyMoreTime is the purchase flow offered from a block. On success the
// block is dismissed; on rejection the block on screen, if any, is
// presented again unchanged and the error (usage.ErrInsufficientFunds and
// friends) is returned.
func (e *Engine) BuyMoreTime(ctx context.Context, pkg string, minutes int64) (*store.UsagePurchase, error) {
	app, err := e.usage.AppByPackage(pkg)
	if err != nil {
		return nil, err
	}

	p, err := e.usage.PurchaseMinutes(app.ID, minutes)
	if err != nil {
		e.log.Info("purchase rejected", zap.String("package", pkg), zap.Int64("minutes", minutes), zap.Error(err))
		e.mu.Lock()
		last, shown := e.shown[pkg]
		e.mu.Unlock()
		if shown {
			last.At = e.cal.Now()
			e.present(last)
		}
		return nil, err
	}

	e.diag.update(func(s *Status) { s.LastRemainingMinutes += minutes })
	e.dismissIfShown(Decision{
		State:   StateTimeAvailable,
		Action:  ActionAllow,
		Package: pkg,
		AppName: app.Name,
		At:      e.cal.Now(),
	})
	return p, nil
}
