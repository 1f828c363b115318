// Package tasks implements task completion, recurrence caps and the
// mandatory-task gate.
package tasks

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/store"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrCapReached        = errors.New("task already completed the allowed number of times today")
	ErrInvalidDefinition = errors.New("invalid task definition")
	ErrInvalidAmount     = errors.New("bonus must be positive")
)

// BonusTaskID is the synthetic archived definition bonus grants are booked
// against.
const BonusTaskID = "settings_single_use_reward"

type Engine struct {
	st          *store.Store
	cal         calendar.Calendar
	log         *zap.Logger
	enforceCaps bool
}

// New returns an engine that enforces recurrence caps.
func New(st *store.Store, cal calendar.Calendar, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{st: st, cal: cal, log: logger, enforceCaps: true}
}

// EnforceCaps toggles the recurrence cap check in CompleteTask. With caps
// off the caller is responsible for not over-completing a task.
func (e *Engine) EnforceCaps(on bool) *Engine {
	e.enforceCaps = on
	return e
}

// Cap returns how many DONE executions per day d allows, or -1 for no limit.
func Cap(d store.TaskDefinition) int {
	switch d.Recurrence {
	case store.RecurrenceUnlimited:
		return -1
	case store.RecurrenceLimited:
		if d.MaxExecutionsPerDay != nil && *d.MaxExecutionsPerDay > 0 {
			return *d.MaxExecutionsPerDay
		}
		return 1
	default:
		return 1
	}
}

// CompleteTask appends a DONE (or SKIPPED) execution for today. The first
// DONE of the day earns RewardCoins; later ones earn RecurringRewardCoins
// when set.
func (e *Engine) CompleteTask(taskID string, skipped bool) (*store.TaskExecution, error) {
	def, err := e.activeDefinition(taskID)
	if err != nil {
		return nil, err
	}

	now := e.cal.Now()
	today := e.cal.Date(now)
	exec := store.TaskExecution{
		TaskDefinitionID: def.ID,
		Date:             today,
		Time:             now.Format("15:04:05"),
	}

	if skipped {
		exec.Status = store.StatusSkipped
	} else {
		done, err := e.st.CountExecutions(def.ID, today, store.StatusDone)
		if err != nil {
			return nil, err
		}
		if limit := Cap(*def); e.enforceCaps && limit >= 0 && done >= limit {
			return nil, fmt.Errorf("%s (%d/%d): %w", def.Name, done, limit, ErrCapReached)
		}
		exec.Status = store.StatusDone
		exec.CoinsAwarded = def.RewardCoins
		if def.RecurringRewardCoins != nil && done > 0 {
			exec.CoinsAwarded = *def.RecurringRewardCoins
		}
	}

	out, err := e.st.InsertExecution(exec)
	if err != nil {
		return nil, err
	}
	e.log.Info("task completed",
		zap.String("task_id", def.ID),
		zap.String("status", string(out.Status)),
		zap.Int("coins", out.CoinsAwarded),
	)
	return out, nil
}

func (e *Engine) activeDefinition(taskID string) (*store.TaskDefinition, error) {
	def, err := e.st.GetTaskDefinition(taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if def.Archived {
		return nil, fmt.Errorf("%s is archived: %w", taskID, ErrNotFound)
	}
	return def, nil
}

// ArchiveTask soft-deletes a definition. Unknown ids are ignored.
func (e *Engine) ArchiveTask(taskID string) error {
	err := e.st.ArchiveTaskDefinition(taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// MandatoryGateSatisfied reports whether every active mandatory task has a
// DONE or SKIPPED execution on date.
func (e *Engine) MandatoryGateSatisfied(date string) (bool, error) {
	pending, err := e.PendingMandatory(date)
	if err != nil {
		return false, err
	}
	return len(pending) == 0, nil
}

// PendingMandatory lists active mandatory tasks with no execution on date.
func (e *Engine) PendingMandatory(date string) ([]store.TaskDefinition, error) {
	defs, err := e.st.ListTaskDefinitions(false)
	if err != nil {
		return nil, err
	}
	execs, err := e.st.ListExecutionsForDate(date)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(execs))
	for _, x := range execs {
		if x.Status == store.StatusDone || x.Status == store.StatusSkipped {
			seen[x.TaskDefinitionID] = true
		}
	}

	var pending []store.TaskDefinition
	for _, d := range defs {
		if d.Mandatory && !seen[d.ID] {
			pending = append(pending, d)
		}
	}
	return pending, nil
}

// GrantBonus books coins as a DONE execution of the synthetic bonus task,
// creating it on first use. Bonuses are never capped.
func (e *Engine) GrantBonus(name string, coins int) (*store.TaskExecution, error) {
	if coins <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := e.st.GetTaskDefinition(BonusTaskID); errors.Is(err, sql.ErrNoRows) {
		if strings.TrimSpace(name) == "" {
			name = "Bonus"
		}
		_, err = e.st.CreateTaskDefinition(store.TaskDefinition{
			ID:          BonusTaskID,
			Name:        name,
			RewardCoins: coins,
			Recurrence:  store.RecurrenceOneTime,
			Archived:    true,
		})
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	now := e.cal.Now()
	out, err := e.st.InsertExecution(store.TaskExecution{
		TaskDefinitionID: BonusTaskID,
		Date:             e.cal.Date(now),
		Time:             now.Format("15:04:05"),
		Status:           store.StatusDone,
		CoinsAwarded:     coins,
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("bonus granted", zap.String("name", name), zap.Int("coins", coins))
	return out, nil
}
