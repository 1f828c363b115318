package store

import "fmt"

const executionColumns = `id, task_definition_id, date, time, status, coins_awarded`

// InsertExecution appends e to the execution log. An empty ID is replaced
// with a fresh one.
func (s *Store) InsertExecution(e TaskExecution) (*TaskExecution, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if err := insertExecution(s.db, e); err != nil {
		return nil, err
	}
	return &e, nil
}

func insertExecution(x execer, e TaskExecution) error {
	_, err := x.Exec(
		`INSERT INTO task_executions (`+executionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskDefinitionID, e.Date, e.Time, string(e.Status), e.CoinsAwarded,
	)
	if err != nil {
		return fmt.Errorf("insert execution %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) ListExecutions() ([]TaskExecution, error) {
	return s.queryExecutions(`SELECT ` + executionColumns + ` FROM task_executions ORDER BY date, time, rowid`)
}

func (s *Store) ListExecutionsForDate(date string) ([]TaskExecution, error) {
	return s.queryExecutions(
		`SELECT `+executionColumns+` FROM task_executions WHERE date = ? ORDER BY time, rowid`, date,
	)
}

// ListExecutionsBetween returns executions with from <= date <= to.
func (s *Store) ListExecutionsBetween(from, to string) ([]TaskExecution, error) {
	return s.queryExecutions(
		`SELECT `+executionColumns+` FROM task_executions WHERE date >= ? AND date <= ? ORDER BY date, time, rowid`,
		from, to,
	)
}

func (s *Store) queryExecutions(query string, args ...any) ([]TaskExecution, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []TaskExecution
	for rows.Next() {
		var e TaskExecution
		var status string
		if err := rows.Scan(&e.ID, &e.TaskDefinitionID, &e.Date, &e.Time, &status, &e.CoinsAwarded); err != nil {
			return nil, err
		}
		e.Status = ExecutionStatus(status)
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// CountExecutions counts executions of one task on one date with the given status.
func (s *Store) CountExecutions(taskID, date string, status ExecutionStatus) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_executions WHERE task_definition_id = ? AND date = ? AND status = ?`,
		taskID, date, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count executions %s on %s: %w", taskID, date, err)
	}
	return n, nil
}

func (s *Store) SumCoinsAwarded() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(coins_awarded), 0) FROM task_executions`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum coins awarded: %w", err)
	}
	return total, nil
}
