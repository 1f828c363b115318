package store

import (
	"database/sql"
	"fmt"
	"time"
)

const rewardColumns = `id, name, description, coin_cost, archived`

func (s *Store) CreateRewardDefinition(r RewardDefinition) (*RewardDefinition, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if err := insertRewardDefinition(s.db, r); err != nil {
		return nil, err
	}
	return s.GetRewardDefinition(r.ID)
}

func insertRewardDefinition(x execer, r RewardDefinition) error {
	_, err := x.Exec(
		`INSERT INTO reward_definitions (`+rewardColumns+`) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Description, r.CoinCost, boolInt(r.Archived),
	)
	if err != nil {
		return fmt.Errorf("insert reward definition %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetRewardDefinition(id string) (*RewardDefinition, error) {
	r := &RewardDefinition{}
	var archived int
	err := s.db.QueryRow(
		`SELECT `+rewardColumns+` FROM reward_definitions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CoinCost, &archived)
	if err != nil {
		return nil, fmt.Errorf("get reward definition %s: %w", id, err)
	}
	r.Archived = archived == 1
	return r, nil
}

func (s *Store) ListRewardDefinitions(includeArchived bool) ([]RewardDefinition, error) {
	query := `SELECT ` + rewardColumns + ` FROM reward_definitions`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY coin_cost, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list reward definitions: %w", err)
	}
	defer rows.Close()

	var defs []RewardDefinition
	for rows.Next() {
		var r RewardDefinition
		var archived int
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CoinCost, &archived); err != nil {
			return nil, err
		}
		r.Archived = archived == 1
		defs = append(defs, r)
	}
	return defs, rows.Err()
}

func (s *Store) UpdateRewardDefinition(r RewardDefinition) error {
	res, err := s.db.Exec(
		`UPDATE reward_definitions SET name = ?, description = ?, coin_cost = ?, archived = ? WHERE id = ?`,
		r.Name, r.Description, r.CoinCost, boolInt(r.Archived), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reward definition %s: %w", r.ID, err)
	}
	return expectOne(res, "reward definition", r.ID)
}

func (s *Store) ArchiveRewardDefinition(id string) error {
	res, err := s.db.Exec(`UPDATE reward_definitions SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive reward definition %s: %w", id, err)
	}
	return expectOne(res, "reward definition", id)
}

// ============================================================
// Redemptions
// ============================================================

// InsertRedemption appends r. Any marks are written to settings in the
// same transaction.
func (s *Store) InsertRedemption(r RewardRedemption, marks ...Setting) (*RewardRedemption, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	r.RedeemedAt = r.RedeemedAt.UTC().Truncate(time.Second)
	err := s.withTx(func(tx *sql.Tx) error {
		if err := insertRedemption(tx, r); err != nil {
			return err
		}
		return setSettings(tx, marks)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func insertRedemption(x execer, r RewardRedemption) error {
	_, err := x.Exec(
		`INSERT INTO reward_redemptions (id, reward_definition_id, redeemed_at, coins_spent) VALUES (?, ?, ?, ?)`,
		r.ID, r.RewardDefinitionID, formatTime(r.RedeemedAt), r.CoinsSpent,
	)
	if err != nil {
		return fmt.Errorf("insert redemption %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) ListRedemptions() ([]RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT id, reward_definition_id, redeemed_at, coins_spent FROM reward_redemptions ORDER BY redeemed_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var out []RewardRedemption
	for rows.Next() {
		var r RewardRedemption
		var redeemedAt string
		if err := rows.Scan(&r.ID, &r.RewardDefinitionID, &redeemedAt, &r.CoinsSpent); err != nil {
			return nil, err
		}
		if r.RedeemedAt, err = parseTime(redeemedAt); err != nil {
			return nil, fmt.Errorf("parse redemption %s time: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SumRedemptionCoins() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(coins_spent), 0) FROM reward_redemptions`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum redemption coins: %w", err)
	}
	return total, nil
}
