package store

import (
	"database/sql"
	"fmt"
	"time"
)

const appColumns = `id, name, package_name, cost_per_minute, purchased_minutes_total, blocked,
	night_override_enabled, night_override_activated_at`

func (s *Store) CreateTrackedApp(a TrackedApp) (*TrackedApp, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if err := insertTrackedApp(s.db, a); err != nil {
		return nil, err
	}
	return s.GetTrackedApp(a.ID)
}

func insertTrackedApp(x execer, a TrackedApp) error {
	var activatedAt sql.NullString
	if a.NightOverrideActivatedAt != nil {
		activatedAt = sql.NullString{String: formatTime(*a.NightOverrideActivatedAt), Valid: true}
	}
	_, err := x.Exec(
		`INSERT INTO tracked_apps (`+appColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.PackageName, a.CostPerMinute, a.PurchasedMinutesTotal, boolInt(a.Blocked),
		boolInt(a.NightOverrideEnabled), activatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracked app %s: %w", a.PackageName, err)
	}
	return nil
}

func (s *Store) GetTrackedApp(id string) (*TrackedApp, error) {
	row := s.db.QueryRow(`SELECT `+appColumns+` FROM tracked_apps WHERE id = ?`, id)
	a, err := scanTrackedApp(row)
	if err != nil {
		return nil, fmt.Errorf("get tracked app %s: %w", id, err)
	}
	return a, nil
}

// GetTrackedAppByPackage looks an app up by its OS package identifier.
func (s *Store) GetTrackedAppByPackage(pkg string) (*TrackedApp, error) {
	row := s.db.QueryRow(`SELECT `+appColumns+` FROM tracked_apps WHERE package_name = ?`, pkg)
	a, err := scanTrackedApp(row)
	if err != nil {
		return nil, fmt.Errorf("get tracked app by package %q: %w", pkg, err)
	}
	return a, nil
}

func (s *Store) ListTrackedApps() ([]TrackedApp, error) {
	rows, err := s.db.Query(`SELECT ` + appColumns + ` FROM tracked_apps ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tracked apps: %w", err)
	}
	defer rows.Close()

	var apps []TrackedApp
	for rows.Next() {
		a, err := scanTrackedApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// UpdateTrackedApp replaces the catalog fields of an app. Night override
// state is managed separately.
func (s *Store) UpdateTrackedApp(a TrackedApp) error {
	res, err := s.db.Exec(
		`UPDATE tracked_apps SET name = ?, package_name = ?, cost_per_minute = ?,
		 purchased_minutes_total = ?, blocked = ? WHERE id = ?`,
		a.Name, a.PackageName, a.CostPerMinute, a.PurchasedMinutesTotal, boolInt(a.Blocked), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update tracked app %s: %w", a.ID, err)
	}
	return expectOne(res, "tracked app", a.ID)
}

func (s *Store) SetNightOverride(id string, activatedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE tracked_apps SET night_override_enabled = 1, night_override_activated_at = ? WHERE id = ?`,
		formatTime(activatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("set night override %s: %w", id, err)
	}
	return expectOne(res, "tracked app", id)
}

func (s *Store) ClearNightOverride(id string) error {
	res, err := s.db.Exec(
		`UPDATE tracked_apps SET night_override_enabled = 0, night_override_activated_at = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("clear night override %s: %w", id, err)
	}
	return expectOne(res, "tracked app", id)
}

func scanTrackedApp(r rowScanner) (*TrackedApp, error) {
	a := &TrackedApp{}
	var blocked, overrideEnabled int
	var activatedAt sql.NullString
	err := r.Scan(&a.ID, &a.Name, &a.PackageName, &a.CostPerMinute, &a.PurchasedMinutesTotal,
		&blocked, &overrideEnabled, &activatedAt)
	if err != nil {
		return nil, err
	}
	a.Blocked = blocked == 1
	a.NightOverrideEnabled = overrideEnabled == 1
	if activatedAt.Valid && activatedAt.String != "" {
		t, err := parseTime(activatedAt.String)
		if err != nil {
			a.NightOverrideErr = fmt.Errorf("parse night override of %s: %w", a.PackageName, err)
		} else {
			a.NightOverrideActivatedAt = &t
		}
	}
	return a, nil
}
