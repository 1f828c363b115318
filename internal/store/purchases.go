package store

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) InsertPurchase(p UsagePurchase) (*UsagePurchase, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	p.PurchasedAt = p.PurchasedAt.UTC().Truncate(time.Second)
	if err := insertPurchase(s.db, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func insertPurchase(x execer, p UsagePurchase) error {
	_, err := x.Exec(
		`INSERT INTO app_usage_purchases (id, app_id, minutes_purchased, coins_spent, purchased_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.AppID, p.MinutesPurchased, p.CoinsSpent, formatTime(p.PurchasedAt),
	)
	if err != nil {
		return fmt.Errorf("insert purchase %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) ListPurchases() ([]UsagePurchase, error) {
	rows, err := s.db.Query(
		`SELECT id, app_id, minutes_purchased, coins_spent, purchased_at FROM app_usage_purchases ORDER BY purchased_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []UsagePurchase
	for rows.Next() {
		var p UsagePurchase
		var purchasedAt string
		if err := rows.Scan(&p.ID, &p.AppID, &p.MinutesPurchased, &p.CoinsSpent, &purchasedAt); err != nil {
			return nil, err
		}
		if p.PurchasedAt, err = parseTime(purchasedAt); err != nil {
			return nil, fmt.Errorf("parse purchase %s time: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumPurchasedMinutes returns the minutes bought for appID since the last clear.
func (s *Store) SumPurchasedMinutes(appID string) (int64, error) {
	var total int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(minutes_purchased), 0) FROM app_usage_purchases WHERE app_id = ?`, appID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum purchased minutes %s: %w", appID, err)
	}
	return total, nil
}

func (s *Store) SumPurchaseCoins() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(coins_spent), 0) FROM app_usage_purchases`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum purchase coins: %w", err)
	}
	return total, nil
}

// DeleteAllPurchases removes every purchase row for every app. Any marks
// are written to settings in the same transaction.
func (s *Store) DeleteAllPurchases(marks ...Setting) (int64, error) {
	var n int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM app_usage_purchases`)
		if err != nil {
			return fmt.Errorf("delete purchases: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return setSettings(tx, marks)
	})
	return n, err
}
