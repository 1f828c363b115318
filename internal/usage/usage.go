// Package usage tracks per-app daily usage, minute purchases and the
// remaining-minutes calculation.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/store"
)

var (
	ErrNotFound          = errors.New("tracked app not found")
	ErrInvalidAmount     = errors.New("purchase must cost at least one coin")
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrInvalidApp        = errors.New("invalid tracked app")
)

// Poller reports cumulative foreground minutes for today keyed by package.
type Poller interface {
	Usage(ctx context.Context) (map[string]int64, error)
}

type Engine struct {
	st  *store.Store
	cal calendar.Calendar
	log *zap.Logger
}

func New(st *store.Store, cal calendar.Calendar, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{st: st, cal: cal, log: logger}
}

// maxCoins bounds a single purchase so the cost fits in an int on every
// platform and in the int64 balance sums.
const maxCoins = math.MaxInt32

// CoinsRequired is floor(costPerMinute × minutes). ok is false when the
// cost is not a finite number of coins within maxCoins.
func CoinsRequired(costPerMinute float64, minutes int64) (coins int, ok bool) {
	cost := math.Floor(costPerMinute * float64(minutes))
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 || cost > maxCoins {
		return 0, false
	}
	return int(cost), true
}

// EffectiveLimit is the hard cap when set, otherwise the purchased minutes.
func EffectiveLimit(app store.TrackedApp, purchased int64) int64 {
	if app.PurchasedMinutesTotal > 0 {
		return app.PurchasedMinutesTotal
	}
	return purchased
}

func (e *Engine) app(appID string) (*store.TrackedApp, error) {
	a, err := e.st.GetTrackedApp(appID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", appID, ErrNotFound)
	}
	return a, err
}

// RemainingMinutes may be negative when usage ran past the limit.
func (e *Engine) RemainingMinutes(appID, date string) (int64, error) {
	a, err := e.app(appID)
	if err != nil {
		return 0, err
	}
	return e.remaining(*a, date)
}

func (e *Engine) remaining(a store.TrackedApp, date string) (int64, error) {
	purchased, err := e.st.SumPurchasedMinutes(a.ID)
	if err != nil {
		return 0, err
	}
	used, err := e.st.UsedMinutes(a.ID, date)
	if err != nil {
		return 0, err
	}
	return EffectiveLimit(a, purchased) - used, nil
}

// PurchaseMinutes is the only way minutes are bought. The balance check
// and the insert share one store transaction; rejections write nothing.
func (e *Engine) PurchaseMinutes(appID string, minutes int64) (*store.UsagePurchase, error) {
	a, err := e.app(appID)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("%d minutes: %w", minutes, ErrInvalidAmount)
	}
	coins, ok := CoinsRequired(a.CostPerMinute, minutes)
	if !ok {
		return nil, fmt.Errorf("%d minutes of %s at %v: %w", minutes, a.Name, a.CostPerMinute, ErrInvalidAmount)
	}
	if coins <= 0 {
		return nil, fmt.Errorf("%d minutes of %s cost %d: %w", minutes, a.Name, coins, ErrInvalidAmount)
	}

	var p *store.UsagePurchase
	err = e.st.Debit(func(tx *store.DebitTx) error {
		balance, err := tx.Balance()
		if err != nil {
			return err
		}
		if int64(coins) > balance {
			return fmt.Errorf("%d minutes of %s cost %d, balance %d: %w", minutes, a.Name, coins, balance, ErrInsufficientFunds)
		}
		p, err = tx.InsertPurchase(store.UsagePurchase{
			AppID:            a.ID,
			MinutesPurchased: minutes,
			CoinsSpent:       coins,
			PurchasedAt:      e.cal.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("minutes purchased",
		zap.String("package", a.PackageName),
		zap.Int64("minutes", minutes),
		zap.Int("coins", coins),
	)
	return p, nil
}

// RecordDailyUsage overwrites the cumulative usage of appID on date.
func (e *Engine) RecordDailyUsage(appID, date string, minutes int64) error {
	return e.st.UpsertUsageAggregate(appID, date, minutes)
}

// ClearAllPurchases deletes every purchase of every app. marks are
// persisted atomically with the delete.
func (e *Engine) ClearAllPurchases(marks ...store.Setting) (int64, error) {
	return e.st.DeleteAllPurchases(marks...)
}

// SyncUsage records the poller's figures for every tracked app on date.
// Apps the poller did not report get 0.
func (e *Engine) SyncUsage(ctx context.Context, p Poller, date string) error {
	byPkg, err := p.Usage(ctx)
	if err != nil {
		return fmt.Errorf("poll usage: %w", err)
	}
	apps, err := e.st.ListTrackedApps()
	if err != nil {
		return err
	}
	for _, a := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.RecordDailyUsage(a.ID, date, byPkg[a.PackageName]); err != nil {
			return err
		}
	}
	e.log.Debug("usage synced", zap.String("date", date), zap.Int("apps", len(apps)))
	return nil
}

// ============================================================
// Catalog
// ============================================================

func validate(a store.TrackedApp) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("name is required: %w", ErrInvalidApp)
	case strings.TrimSpace(a.PackageName) == "":
		return fmt.Errorf("package is required: %w", ErrInvalidApp)
	case a.CostPerMinute < 0 || math.IsNaN(a.CostPerMinute) || math.IsInf(a.CostPerMinute, 0):
		return fmt.Errorf("cost per minute %v: %w", a.CostPerMinute, ErrInvalidApp)
	case a.PurchasedMinutesTotal < 0:
		return fmt.Errorf("daily cap %d: %w", a.PurchasedMinutesTotal, ErrInvalidApp)
	}
	return nil
}

func (e *Engine) CreateApp(a store.TrackedApp) (*store.TrackedApp, error) {
	if err := validate(a); err != nil {
		return nil, err
	}
	return e.st.CreateTrackedApp(a)
}

func (e *Engine) UpdateApp(a store.TrackedApp) error {
	if err := validate(a); err != nil {
		return err
	}
	err := e.st.UpdateTrackedApp(a)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", a.ID, ErrNotFound)
	}
	return err
}

func (e *Engine) ListApps() ([]store.TrackedApp, error) {
	return e.st.ListTrackedApps()
}

// AppByPackage resolves a tracked app from an OS package identifier.
func (e *Engine) AppByPackage(pkg string) (*store.TrackedApp, error) {
	a, err := e.st.GetTrackedAppByPackage(pkg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", pkg, ErrNotFound)
	}
	return a, err
}

// ActivateNightOverride exempts appID from blocking until the next cutoff.
func (e *Engine) ActivateNightOverride(appID string) error {
	err := e.st.SetNightOverride(appID, e.cal.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", appID, ErrNotFound)
	}
	if err == nil {
		e.log.Info("night override activated", zap.String("app_id", appID))
	}
	return err
}

func (e *Engine) ClearNightOverride(appID string) error {
	err := e.st.ClearNightOverride(appID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", appID, ErrNotFound)
	}
	return err
}

// Status is an app together with its figures for one day.
type Status struct {
	App       store.TrackedApp
	Used      int64
	Purchased int64
	Limit     int64
	Remaining int64
}

func (e *Engine) Overview(date string) ([]Status, error) {
	apps, err := e.st.ListTrackedApps()
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(apps))
	for _, a := range apps {
		purchased, err := e.st.SumPurchasedMinutes(a.ID)
		if err != nil {
			return nil, err
		}
		used, err := e.st.UsedMinutes(a.ID, date)
		if err != nil {
			return nil, err
		}
		limit := EffectiveLimit(a, purchased)
		out = append(out, Status{App: a, Used: used, Purchased: purchased, Limit: limit, Remaining: limit - used})
	}
	return out, nil
}
