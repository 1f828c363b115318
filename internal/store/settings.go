package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Housekeeping keys persisted in the settings table.
const (
	KeyLastDailyPurchaseReset = "last_daily_purchase_reset"
	KeyLastWeeklyCoinReset    = "last_weekly_coin_reset"
	KeyLastWeeklyZeroReset    = "last_weekly_zero_reset"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	return setSetting(s.db, key, value)
}

func setSetting(x execer, key, value string) error {
	_, err := x.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func setSettings(x execer, marks []Setting) error {
	for _, m := range marks {
		if err := setSetting(x, m.Key, m.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetInstant returns the instant stored under key, or nil when it was never
// set. A stored value that does not parse is reported as an error.
func (s *Store) GetInstant(key string) (*time.Time, error) {
	v, err := s.GetSetting(key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, fmt.Errorf("parse instant %q: %w", key, err)
	}
	return &t, nil
}

func (s *Store) SetInstant(key string, t time.Time) error {
	return s.SetSetting(key, formatTime(t))
}
