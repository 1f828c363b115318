// Package rewards manages the reward catalog and balance-checked redemption.
package rewards

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/store"
)

var (
	ErrNotFound          = errors.New("reward not found")
	ErrInvalidCost       = errors.New("reward cost must be positive")
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrInvalidDefinition = errors.New("invalid reward definition")
)

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

// Redeem spends the full cost of a reward. The balance check and the
// insert share one store transaction. Every rejection leaves the ledger
// untouched.
func (e *Engine) Redeem(rewardID string) (*store.RewardRedemption, error) {
	r, err := e.st.GetRewardDefinition(rewardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", rewardID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if r.Archived {
		return nil, fmt.Errorf("%s is archived: %w", rewardID, ErrNotFound)
	}
	if r.CoinCost <= 0 {
		return nil, fmt.Errorf("%s costs %d: %w", r.Name, r.CoinCost, ErrInvalidCost)
	}

	var out *store.RewardRedemption
	err = e.st.Debit(func(tx *store.DebitTx) error {
		balance, err := tx.Balance()
		if err != nil {
			return err
		}
		if balance < int64(r.CoinCost) {
			return fmt.Errorf("%s costs %d, balance %d: %w", r.Name, r.CoinCost, balance, ErrInsufficientFunds)
		}
		out, err = tx.InsertRedemption(store.RewardRedemption{
			RewardDefinitionID: r.ID,
			RedeemedAt:         e.cal.Now(),
			CoinsSpent:         r.CoinCost,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("reward redeemed", zap.String("reward_id", r.ID), zap.Int("coins", r.CoinCost))
	return out, nil
}

func validate(r store.RewardDefinition) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidDefinition)
	}
	if r.CoinCost <= 0 {
		return fmt.Errorf("cost %d: %w", r.CoinCost, ErrInvalidDefinition)
	}
	return nil
}

func (e *Engine) CreateReward(r store.RewardDefinition) (*store.RewardDefinition, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	return e.st.CreateRewardDefinition(r)
}

func (e *Engine) UpdateReward(r store.RewardDefinition) error {
	if err := validate(r); err != nil {
		return err
	}
	return e.st.UpdateRewardDefinition(r)
}

// ArchiveReward hides a reward from the catalog. Unknown ids are ignored.
func (e *Engine) ArchiveReward(rewardID string) error {
	err := e.st.ArchiveRewardDefinition(rewardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (e *Engine) ListRewards(includeArchived bool) ([]store.RewardDefinition, error) {
	return e.st.ListRewardDefinitions(includeArchived)
}
