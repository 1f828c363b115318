package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/ledger"
	"github.com/sadopc/earntime/internal/store"
)

var monday = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, calendar.Fixed(monday), nil), s
}

func intp(n int) *int { return &n }

func mustCreate(t *testing.T, e *Engine, d store.TaskDefinition) *store.TaskDefinition {
	t.Helper()
	out, err := e.CreateTask(d)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return out
}

// ============================================================
// CompleteTask
// ============================================================

func TestCompleteTaskNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CompleteTask("missing", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTaskArchivedIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	d := mustCreate(t, e, store.TaskDefinition{Name: "Old", RewardCoins: 5, Recurrence: store.RecurrenceDaily})
	e.ArchiveTask(d.ID)
	if _, err := e.CompleteTask(d.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTaskSkipped(t *testing.T) {
	e, s := newTestEngine(t)
	d := mustCreate(t, e, store.TaskDefinition{Name: "Run", RewardCoins: 10, Recurrence: store.RecurrenceDaily})

	x, err := e.CompleteTask(d.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if x.Status != store.StatusSkipped || x.CoinsAwarded != 0 {
		t.Fatalf("unexpected execution: %+v", x)
	}
	if x.Date != "2024-03-04" || x.Time != "09:30:00" {
		t.Fatalf("unexpected date/time %s %s", x.Date, x.Time)
	}

	// SKIPPED never counts toward the cap.
	if _, err := e.CompleteTask(d.ID, false); err != nil {
		t.Fatalf("DONE after SKIPPED should be allowed: %v", err)
	}
	if bal, _ := ledger.New(s).Balance(); bal != 10 {
		t.Fatalf("expected balance 10, got %d", bal)
	}
}

// DAILY twice in one day with caps off: the award paths the caller is
// responsible for.
func TestCompleteDailyTwiceCallerEnforced(t *testing.T) {
	tests := []struct {
		name      string
		recurring *int
		second    int
	}{
		{"with recurring reward", intp(2), 2},
		{"without recurring reward", nil, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			e.EnforceCaps(false)
			d := mustCreate(t, e, store.TaskDefinition{
				Name: "Read", RewardCoins: 10, RecurringRewardCoins: tt.recurring, Recurrence: store.RecurrenceDaily,
			})

			first, err := e.CompleteTask(d.ID, false)
			if err != nil {
				t.Fatal(err)
			}
			if first.CoinsAwarded != 10 {
				t.Fatalf("first award = %d, want 10", first.CoinsAwarded)
			}
			second, err := e.CompleteTask(d.ID, false)
			if err != nil {
				t.Fatal(err)
			}
			if second.CoinsAwarded != tt.second {
				t.Fatalf("second award = %d, want %d", second.CoinsAwarded, tt.second)
			}
		})
	}
}

func TestCompleteTaskCapReached(t *testing.T) {
	tests := []struct {
		name    string
		def     store.TaskDefinition
		allowed int
	}{
		{"one time", store.TaskDefinition{Name: "a", RewardCoins: 1, Recurrence: store.RecurrenceOneTime}, 1},
		{"daily", store.TaskDefinition{Name: "b", RewardCoins: 1, Recurrence: store.RecurrenceDaily}, 1},
		{"limited", store.TaskDefinition{Name: "c", RewardCoins: 1, Recurrence: store.RecurrenceLimited, MaxExecutionsPerDay: intp(3)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEngine(t)
			d := mustCreate(t, e, tt.def)
			for i := 0; i < tt.allowed; i++ {
				if _, err := e.CompleteTask(d.ID, false); err != nil {
					t.Fatalf("completion %d: %v", i+1, err)
				}
			}
			_, err := e.CompleteTask(d.ID, false)
			if !errors.Is(err, ErrCapReached) {
				t.Fatalf("expected ErrCapReached, got %v", err)
			}
			// Rejection has no side effect.
			n, _ := s.CountExecutions(d.ID, "2024-03-04", store.StatusDone)
			if n != tt.allowed {
				t.Fatalf("expected %d executions, got %d", tt.allowed, n)
			}
		})
	}
}

func TestCompleteUnlimitedNeverCapped(t *testing.T) {
	e, s := newTestEngine(t)
	d := mustCreate(t, e, store.TaskDefinition{
		Name: "Water", RewardCoins: 3, RecurringRewardCoins: intp(1), Recurrence: store.RecurrenceUnlimited,
	})
	for i := 0; i < 10; i++ {
		if _, err := e.CompleteTask(d.ID, false); err != nil {
			t.Fatal(err)
		}
	}
	if bal, _ := ledger.New(s).Balance(); bal != 3+9 {
		t.Fatalf("expected 12, got %d", bal)
	}
}

func TestCapResetsNextDay(t *testing.T) {
	_, s := newTestEngine(t)
	e := New(s, calendar.Fixed(monday), nil)
	d := mustCreate(t, e, store.TaskDefinition{Name: "Run", RewardCoins: 5, Recurrence: store.RecurrenceDaily})
	e.CompleteTask(d.ID, false)

	tomorrow := New(s, calendar.Fixed(monday.AddDate(0, 0, 1)), nil)
	x, err := tomorrow.CompleteTask(d.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if x.CoinsAwarded != 5 {
		t.Fatalf("expected first-of-day reward, got %d", x.CoinsAwarded)
	}
}

// ============================================================
// Mandatory gate
// ============================================================

func TestMandatoryGate(t *testing.T) {
	e, _ := newTestEngine(t)
	ok, err := e.MandatoryGateSatisfied("2024-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("no mandatory tasks should satisfy the gate")
	}

	m1 := mustCreate(t, e, store.TaskDefinition{Name: "Meds", Mandatory: true, Recurrence: store.RecurrenceDaily})
	m2 := mustCreate(t, e, store.TaskDefinition{Name: "Bed", Mandatory: true, Recurrence: store.RecurrenceDaily})
	mustCreate(t, e, store.TaskDefinition{Name: "Optional", Recurrence: store.RecurrenceDaily})

	if ok, _ := e.MandatoryGateSatisfied("2024-03-04"); ok {
		t.Fatal("gate should fail with pending mandatory tasks")
	}

	e.CompleteTask(m1.ID, false)
	pending, _ := e.PendingMandatory("2024-03-04")
	if len(pending) != 1 || pending[0].ID != m2.ID {
		t.Fatalf("expected only Bed pending, got %+v", pending)
	}

	e.CompleteTask(m2.ID, true)
	if ok, _ := e.MandatoryGateSatisfied("2024-03-04"); !ok {
		t.Fatal("SKIPPED should satisfy the gate")
	}
	if ok, _ := e.MandatoryGateSatisfied("2024-03-05"); ok {
		t.Fatal("gate is per date")
	}
}

func TestMandatoryGateIgnoresArchived(t *testing.T) {
	e, _ := newTestEngine(t)
	m := mustCreate(t, e, store.TaskDefinition{Name: "Meds", Mandatory: true, Recurrence: store.RecurrenceDaily})
	e.ArchiveTask(m.ID)
	if ok, _ := e.MandatoryGateSatisfied("2024-03-04"); !ok {
		t.Fatal("archived mandatory task must not block")
	}
}

func TestArchiveUnknownIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.ArchiveTask("missing"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

// ============================================================
// Bonus and catalog
// ============================================================

func TestGrantBonus(t *testing.T) {
	e, s := newTestEngine(t)
	if _, err := e.GrantBonus("Birthday", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := e.GrantBonus("Birthday", 25); err != nil {
			t.Fatal(err)
		}
	}
	if bal, _ := ledger.New(s).Balance(); bal != 50 {
		t.Fatalf("expected 50, got %d", bal)
	}
	def, err := s.GetTaskDefinition(BonusTaskID)
	if err != nil {
		t.Fatal(err)
	}
	if !def.Archived || def.Recurrence != store.RecurrenceOneTime {
		t.Fatalf("unexpected synthetic task: %+v", def)
	}
	if active, _ := e.ListTasks(false); len(active) != 0 {
		t.Fatalf("bonus task must stay hidden, got %+v", active)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	bad := []store.TaskDefinition{
		{Name: "", Recurrence: store.RecurrenceDaily},
		{Name: "x", Recurrence: "WEEKLY"},
		{Name: "x", Recurrence: store.RecurrenceDaily, RewardCoins: -1},
		{Name: "x", Recurrence: store.RecurrenceLimited},
		{Name: "x", Recurrence: store.RecurrenceLimited, MaxExecutionsPerDay: intp(0)},
	}
	for _, d := range bad {
		if _, err := e.CreateTask(d); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("CreateTask(%+v): expected ErrInvalidDefinition, got %v", d, err)
		}
	}

	d := mustCreate(t, e, store.TaskDefinition{Name: "x", Recurrence: store.RecurrenceDaily, MaxExecutionsPerDay: intp(5)})
	if d.MaxExecutionsPerDay != nil {
		t.Fatal("max per day only applies to LIMITED_PER_DAY")
	}
}

func TestTodayProgress(t *testing.T) {
	e, _ := newTestEngine(t)
	d := mustCreate(t, e, store.TaskDefinition{Name: "Read", RewardCoins: 1, Recurrence: store.RecurrenceLimited, MaxExecutionsPerDay: intp(2)})
	e.CompleteTask(d.ID, false)
	e.CompleteTask(d.ID, true)

	p, err := e.TodayProgress("2024-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 1 || p[0].Done != 1 || p[0].Skipped != 1 || p[0].CapReached {
		t.Fatalf("unexpected progress: %+v", p)
	}
	e.CompleteTask(d.ID, false)
	p, _ = e.TodayProgress("2024-03-04")
	if !p[0].CapReached {
		t.Fatal("expected cap reached")
	}
}
