package store

import (
	"database/sql"
	"fmt"
	"time"
)

// DebitTx is a write transaction for coin-spending rows. The balance it
// reports cannot change until the transaction ends.
type DebitTx struct {
	tx *sql.Tx
}

// Debit runs fn in one write transaction. Transactions take the write lock
// when they begin, so concurrent debits (from this process or another one
// on the same file) see each other's rows. An error from fn rolls back.
func (s *Store) Debit(fn func(tx *DebitTx) error) error {
	return s.withTx(func(tx *sql.Tx) error {
		return fn(&DebitTx{tx: tx})
	})
}

// Balance is coins awarded minus coins redeemed minus coins purchased.
func (d *DebitTx) Balance() (int64, error) {
	var bal int64
	err := d.tx.QueryRow(`SELECT
		(SELECT COALESCE(SUM(coins_awarded), 0) FROM task_executions)
		- (SELECT COALESCE(SUM(coins_spent), 0) FROM reward_redemptions)
		- (SELECT COALESCE(SUM(coins_spent), 0) FROM app_usage_purchases)`,
	).Scan(&bal)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return bal, nil
}

// InsertRedemption appends r and writes any marks.
func (d *DebitTx) InsertRedemption(r RewardRedemption, marks ...Setting) (*RewardRedemption, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	r.RedeemedAt = r.RedeemedAt.UTC().Truncate(time.Second)
	if err := insertRedemption(d.tx, r); err != nil {
		return nil, err
	}
	if err := setSettings(d.tx, marks); err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DebitTx) InsertPurchase(p UsagePurchase) (*UsagePurchase, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	p.PurchasedAt = p.PurchasedAt.UTC().Truncate(time.Second)
	if err := insertPurchase(d.tx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetSetting writes one setting inside the transaction.
func (d *DebitTx) SetSetting(key, value string) error {
	return setSetting(d.tx, key, value)
}
