package store

import (
	"database/sql"
	"fmt"
)

const taskDefinitionColumns = `id, name, mandatory, reward_coins, recurring_reward_coins, recurrence, max_executions_per_day, archived`

// CreateTaskDefinition inserts d. An empty ID is replaced with a fresh one.
func (s *Store) CreateTaskDefinition(d TaskDefinition) (*TaskDefinition, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if err := insertTaskDefinition(s.db, d); err != nil {
		return nil, err
	}
	return s.GetTaskDefinition(d.ID)
}

func insertTaskDefinition(x execer, d TaskDefinition) error {
	_, err := x.Exec(
		`INSERT INTO task_definitions (`+taskDefinitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, boolInt(d.Mandatory), d.RewardCoins, nullInt(d.RecurringRewardCoins),
		string(d.Recurrence), nullInt(d.MaxExecutionsPerDay), boolInt(d.Archived),
	)
	if err != nil {
		return fmt.Errorf("insert task definition %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) GetTaskDefinition(id string) (*TaskDefinition, error) {
	row := s.db.QueryRow(`SELECT `+taskDefinitionColumns+` FROM task_definitions WHERE id = ?`, id)
	d, err := scanTaskDefinition(row)
	if err != nil {
		return nil, fmt.Errorf("get task definition %s: %w", id, err)
	}
	return d, nil
}

func (s *Store) ListTaskDefinitions(includeArchived bool) ([]TaskDefinition, error) {
	query := `SELECT ` + taskDefinitionColumns + ` FROM task_definitions`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY mandatory DESC, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list task definitions: %w", err)
	}
	defer rows.Close()

	var defs []TaskDefinition
	for rows.Next() {
		d, err := scanTaskDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

func (s *Store) UpdateTaskDefinition(d TaskDefinition) error {
	res, err := s.db.Exec(
		`UPDATE task_definitions SET name = ?, mandatory = ?, reward_coins = ?, recurring_reward_coins = ?,
		 recurrence = ?, max_executions_per_day = ?, archived = ? WHERE id = ?`,
		d.Name, boolInt(d.Mandatory), d.RewardCoins, nullInt(d.RecurringRewardCoins),
		string(d.Recurrence), nullInt(d.MaxExecutionsPerDay), boolInt(d.Archived), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update task definition %s: %w", d.ID, err)
	}
	return expectOne(res, "task definition", d.ID)
}

func (s *Store) ArchiveTaskDefinition(id string) error {
	res, err := s.db.Exec(`UPDATE task_definitions SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive task definition %s: %w", id, err)
	}
	return expectOne(res, "task definition", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskDefinition(r rowScanner) (*TaskDefinition, error) {
	d := &TaskDefinition{}
	var mandatory, archived int
	var recurrence string
	var recurring, maxPerDay sql.NullInt64
	if err := r.Scan(&d.ID, &d.Name, &mandatory, &d.RewardCoins, &recurring, &recurrence, &maxPerDay, &archived); err != nil {
		return nil, err
	}
	d.Mandatory = mandatory == 1
	d.Archived = archived == 1
	d.Recurrence = Recurrence(recurrence)
	d.RecurringRewardCoins = intPtr(recurring)
	d.MaxExecutionsPerDay = intPtr(maxPerDay)
	return d, nil
}

// expectOne turns an update that touched no rows into sql.ErrNoRows.
func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}
