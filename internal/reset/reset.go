// Package reset runs the idempotent daily and weekly housekeeping passes.
// Each pass is guarded by an instant persisted in the settings table, so
// RunDue may be called on every decision cycle.
package reset

import (
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/ledger"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/usage"
)

// ZeroResetRewardID is the synthetic archived reward the weekly balancing
// redemption is booked against.
const ZeroResetRewardID = "weekly_zero_reset"

// Result reports which passes ran.
type Result struct {
	PurchasesCleared   bool
	ClearedRows        int64
	WeeklyRecalculated bool
	ZeroReset          bool
	Neutralized        int64 // coins removed by the zero reset
	Balance            int64 // balance after the passes that ran
}

type Coordinator struct {
	st     *store.Store
	usage  *usage.Engine
	ledger *ledger.Ledger
	cal    calendar.Calendar
	log    *zap.Logger
}

func New(st *store.Store, u *usage.Engine, l *ledger.Ledger, cal calendar.Calendar, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{st: st, usage: u, ledger: l, cal: cal, log: logger}
}

// RunDue performs every pass that is due at now.
func (c *Coordinator) RunDue(now time.Time) (Result, error) {
	var res Result
	if err := c.daily(now, &res); err != nil {
		return res, err
	}
	if err := c.weekly(now, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Coordinator) lastRun(key string) *time.Time {
	t, err := c.st.GetInstant(key)
	if err != nil {
		// An unreadable mark counts as never run.
		c.log.Warn("unreadable reset mark", zap.String("key", key), zap.Error(err))
		return nil
	}
	return t
}

// daily clears all purchases once per logical day (days start at the
// cutoff hour).
func (c *Coordinator) daily(now time.Time, res *Result) error {
	last := c.lastRun(store.KeyLastDailyPurchaseReset)
	if last != nil && c.cal.LogicalDate(*last) >= c.cal.LogicalDate(now) {
		return nil
	}

	n, err := c.usage.ClearAllPurchases(store.Setting{
		Key:   store.KeyLastDailyPurchaseReset,
		Value: store.FormatInstant(now),
	})
	if err != nil {
		return err
	}
	bal, err := c.ledger.Balance()
	if err != nil {
		return err
	}
	res.PurchasesCleared = true
	res.ClearedRows = n
	res.Balance = bal
	c.log.Info("daily purchase reset",
		zap.String("logical_date", c.cal.LogicalDate(now)),
		zap.Int64("cleared", n),
		zap.Int64("balance", bal),
	)
	return nil
}

// weekly only runs on Sundays.
func (c *Coordinator) weekly(now time.Time, res *Result) error {
	if c.cal.StartOfDay(now).Weekday() != time.Sunday {
		return nil
	}
	today := c.cal.Date(now)

	weekStart := c.cal.Date(c.cal.StartOfWeek(now))
	last := c.lastRun(store.KeyLastWeeklyCoinReset)
	if last == nil || c.cal.Date(*last) < weekStart {
		bal, err := c.ledger.Balance()
		if err != nil {
			return err
		}
		if err := c.st.SetInstant(store.KeyLastWeeklyCoinReset, now); err != nil {
			return err
		}
		res.WeeklyRecalculated = true
		res.Balance = bal
		c.log.Info("weekly balance recalculated", zap.String("week", weekStart), zap.Int64("balance", bal))
	}

	lastZero := c.lastRun(store.KeyLastWeeklyZeroReset)
	if lastZero != nil && c.cal.Date(*lastZero) == today {
		return nil
	}
	return c.zeroReset(now, res)
}

// zeroReset neutralizes the balance with one balancing redemption. The
// balance read, the redemption and the mark (keyed on the calendar date)
// share one store transaction, so a concurrent purchase cannot slip in
// between them.
func (c *Coordinator) zeroReset(now time.Time, res *Result) error {
	mark := store.Setting{Key: store.KeyLastWeeklyZeroReset, Value: store.FormatInstant(c.cal.StartOfDay(now))}

	if err := c.ensureZeroResetReward(); err != nil {
		return err
	}

	var bal int64
	err := c.st.Debit(func(tx *store.DebitTx) error {
		var err error
		bal, err = tx.Balance()
		if err != nil {
			return err
		}
		if bal == 0 {
			return tx.SetSetting(mark.Key, mark.Value)
		}
		_, err = tx.InsertRedemption(store.RewardRedemption{
			RewardDefinitionID: ZeroResetRewardID,
			RedeemedAt:         now,
			CoinsSpent:         int(bal),
		}, mark)
		return err
	})
	if err != nil {
		return err
	}

	res.ZeroReset = true
	res.Balance = 0
	if bal == 0 {
		return nil
	}
	res.Neutralized = bal
	c.log.Info("weekly zero reset", zap.String("date", c.cal.Date(now)), zap.Int64("neutralized", bal))
	return nil
}

func (c *Coordinator) ensureZeroResetReward() error {
	_, err := c.st.GetRewardDefinition(ZeroResetRewardID)
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = c.st.CreateRewardDefinition(store.RewardDefinition{
		ID:          ZeroResetRewardID,
		Name:        "Weekly reset",
		Description: "Balances the coin total to zero every Sunday",
		Archived:    true,
	})
	return err
}
