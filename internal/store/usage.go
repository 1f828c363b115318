package store

import "fmt"

// UpsertUsageAggregate stores the cumulative minutes for (appID, date),
// overwriting any earlier value for the same day.
func (s *Store) UpsertUsageAggregate(appID, date string, minutes int64) error {
	_, err := s.db.Exec(
		`INSERT INTO app_usage_aggregates (id, app_id, date, used_minutes_automatic) VALUES (?, ?, ?, ?)
		 ON CONFLICT(app_id, date) DO UPDATE SET used_minutes_automatic = excluded.used_minutes_automatic`,
		newID(), appID, date, minutes,
	)
	if err != nil {
		return fmt.Errorf("upsert usage %s on %s: %w", appID, date, err)
	}
	return nil
}

func insertUsageAggregate(x execer, u UsageAggregate) error {
	_, err := x.Exec(
		`INSERT INTO app_usage_aggregates (id, app_id, date, used_minutes_automatic) VALUES (?, ?, ?, ?)`,
		u.ID, u.AppID, u.Date, u.UsedMinutesAutomatic,
	)
	if err != nil {
		return fmt.Errorf("insert usage aggregate %s: %w", u.ID, err)
	}
	return nil
}

// UsedMinutes returns the automatic usage of appID on date, 0 when no row exists.
func (s *Store) UsedMinutes(appID, date string) (int64, error) {
	var used int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(used_minutes_automatic), 0) FROM app_usage_aggregates WHERE app_id = ? AND date = ?`,
		appID, date,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("used minutes %s on %s: %w", appID, date, err)
	}
	return used, nil
}

func (s *Store) ListUsageAggregates() ([]UsageAggregate, error) {
	return s.queryUsage(`SELECT id, app_id, date, used_minutes_automatic FROM app_usage_aggregates ORDER BY date, app_id`)
}

// ListUsageBetween returns aggregates with from <= date <= to.
func (s *Store) ListUsageBetween(from, to string) ([]UsageAggregate, error) {
	return s.queryUsage(
		`SELECT id, app_id, date, used_minutes_automatic FROM app_usage_aggregates
		 WHERE date >= ? AND date <= ? ORDER BY date, app_id`, from, to,
	)
}

func (s *Store) queryUsage(query string, args ...any) ([]UsageAggregate, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []UsageAggregate
	for rows.Next() {
		var u UsageAggregate
		if err := rows.Scan(&u.ID, &u.AppID, &u.Date, &u.UsedMinutesAutomatic); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
