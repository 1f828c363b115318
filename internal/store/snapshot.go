package store

import "fmt"

// Dump reads all seven ledger tables.
func (s *Store) Dump() (*Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.TaskDefinitions, err = s.ListTaskDefinitions(true); err != nil {
		return nil, err
	}
	if snap.TaskExecutions, err = s.ListExecutions(); err != nil {
		return nil, err
	}
	if snap.RewardDefinitions, err = s.ListRewardDefinitions(true); err != nil {
		return nil, err
	}
	if snap.RewardRedemptions, err = s.ListRedemptions(); err != nil {
		return nil, err
	}
	if snap.TrackedApps, err = s.ListTrackedApps(); err != nil {
		return nil, err
	}
	if snap.UsageAggregates, err = s.ListUsageAggregates(); err != nil {
		return nil, err
	}
	if snap.UsagePurchases, err = s.ListPurchases(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Replace clears the seven ledger tables and inserts snap in dependency
// order inside one transaction. On any error nothing is changed.
func (s *Store) Replace(snap *Snapshot) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// Children before parents so foreign keys hold at every step.
	for _, table := range []string{
		"task_executions",
		"reward_redemptions",
		"app_usage_aggregates",
		"app_usage_purchases",
		"task_definitions",
		"reward_definitions",
		"tracked_apps",
	} {
		if _, err = tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, d := range snap.TaskDefinitions {
		if err = insertTaskDefinition(tx, d); err != nil {
			return err
		}
	}
	for _, e := range snap.TaskExecutions {
		if err = insertExecution(tx, e); err != nil {
			return err
		}
	}
	for _, r := range snap.RewardDefinitions {
		if err = insertRewardDefinition(tx, r); err != nil {
			return err
		}
	}
	for _, r := range snap.RewardRedemptions {
		if err = insertRedemption(tx, r); err != nil {
			return err
		}
	}
	for _, a := range snap.TrackedApps {
		if err = insertTrackedApp(tx, a); err != nil {
			return err
		}
	}
	for _, u := range snap.UsageAggregates {
		if err = insertUsageAggregate(tx, u); err != nil {
			return err
		}
	}
	for _, p := range snap.UsagePurchases {
		if err = insertPurchase(tx, p); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}
