package tasks

import (
	"fmt"
	"strings"

	"github.com/sadopc/earntime/internal/store"
)

func validate(d store.TaskDefinition) error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("name is required: %w", ErrInvalidDefinition)
	case !d.Recurrence.Valid():
		return fmt.Errorf("unknown recurrence %q: %w", d.Recurrence, ErrInvalidDefinition)
	case d.RewardCoins < 0:
		return fmt.Errorf("negative reward: %w", ErrInvalidDefinition)
	case d.RecurringRewardCoins != nil && *d.RecurringRewardCoins < 0:
		return fmt.Errorf("negative recurring reward: %w", ErrInvalidDefinition)
	case d.Recurrence == store.RecurrenceLimited && (d.MaxExecutionsPerDay == nil || *d.MaxExecutionsPerDay <= 0):
		return fmt.Errorf("%s needs a positive daily maximum: %w", d.Recurrence, ErrInvalidDefinition)
	}
	return nil
}

func (e *Engine) CreateTask(d store.TaskDefinition) (*store.TaskDefinition, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	if d.Recurrence != store.RecurrenceLimited {
		d.MaxExecutionsPerDay = nil
	}
	return e.st.CreateTaskDefinition(d)
}

func (e *Engine) UpdateTask(d store.TaskDefinition) error {
	if err := validate(d); err != nil {
		return err
	}
	if d.Recurrence != store.RecurrenceLimited {
		d.MaxExecutionsPerDay = nil
	}
	return e.st.UpdateTaskDefinition(d)
}

func (e *Engine) ListTasks(includeArchived bool) ([]store.TaskDefinition, error) {
	return e.st.ListTaskDefinitions(includeArchived)
}

// Progress is one active task together with today's execution counts.
type Progress struct {
	Task       store.TaskDefinition
	Done       int
	Skipped    int
	CapReached bool
}

// TodayProgress returns every active task with its executions on date.
func (e *Engine) TodayProgress(date string) ([]Progress, error) {
	defs, err := e.st.ListTaskDefinitions(false)
	if err != nil {
		return nil, err
	}
	execs, err := e.st.ListExecutionsForDate(date)
	if err != nil {
		return nil, err
	}

	done := make(map[string]int)
	skipped := make(map[string]int)
	for _, x := range execs {
		switch x.Status {
		case store.StatusDone:
			done[x.TaskDefinitionID]++
		case store.StatusSkipped:
			skipped[x.TaskDefinitionID]++
		}
	}

	out := make([]Progress, 0, len(defs))
	for _, d := range defs {
		limit := Cap(d)
		out = append(out, Progress{
			Task:       d,
			Done:       done[d.ID],
			Skipped:    skipped[d.ID],
			CapReached: limit >= 0 && done[d.ID] >= limit,
		})
	}
	return out, nil
}
