// Package ledger derives the coin balance from history. No balance is ever
// stored.
package ledger

import "github.com/sadopc/earntime/internal/store"

// Fold computes the balance from the three append-only collections:
// coins awarded minus coins redeemed minus coins spent on minutes.
func Fold(execs []store.TaskExecution, redemptions []store.RewardRedemption, purchases []store.UsagePurchase) int64 {
	var bal int64
	for _, e := range execs {
		bal += int64(e.CoinsAwarded)
	}
	for _, r := range redemptions {
		bal -= int64(r.CoinsSpent)
	}
	for _, p := range purchases {
		bal -= int64(p.CoinsSpent)
	}
	return bal
}

// Sums is the subset of the store the ledger reads.
type Sums interface {
	SumCoinsAwarded() (int64, error)
	SumRedemptionCoins() (int64, error)
	SumPurchaseCoins() (int64, error)
}

type Ledger struct {
	src Sums
}

func New(src Sums) *Ledger {
	return &Ledger{src: src}
}

// Balance recomputes the balance on every call. An empty history yields 0.
func (l *Ledger) Balance() (int64, error) {
	earned, err := l.src.SumCoinsAwarded()
	if err != nil {
		return 0, err
	}
	redeemed, err := l.src.SumRedemptionCoins()
	if err != nil {
		return 0, err
	}
	purchased, err := l.src.SumPurchaseCoins()
	if err != nil {
		return 0, err
	}
	return earned - redeemed - purchased, nil
}
