package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/sadopc/earntime/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBalanceEmpty(t *testing.T) {
	l := New(newTestStore(t))
	bal, err := l.Balance()
	if err != nil {
		t.Fatal(err)
	}
	if bal != 0 {
		t.Fatalf("expected 0, got %d", bal)
	}
	if Fold(nil, nil, nil) != 0 {
		t.Fatal("expected Fold of nothing to be 0")
	}
}

// TestBalanceMatchesReferenceAccumulator appends random movements and
// checks the store-backed balance against a running total after each one.
func TestBalanceMatchesReferenceAccumulator(t *testing.T) {
	s := newTestStore(t)
	l := New(s)
	rng := rand.New(rand.NewSource(42))

	task, _ := s.CreateTaskDefinition(store.TaskDefinition{Name: "t", Recurrence: store.RecurrenceUnlimited})
	reward, _ := s.CreateRewardDefinition(store.RewardDefinition{Name: "r", CoinCost: 1})
	app, _ := s.CreateTrackedApp(store.TrackedApp{Name: "a", PackageName: "com.a", CostPerMinute: 1})

	var want int64
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		n := rng.Intn(50)
		switch rng.Intn(3) {
		case 0:
			s.InsertExecution(store.TaskExecution{TaskDefinitionID: task.ID, Date: "2024-03-04", Status: store.StatusDone, CoinsAwarded: n})
			want += int64(n)
		case 1:
			s.InsertRedemption(store.RewardRedemption{RewardDefinitionID: reward.ID, RedeemedAt: now, CoinsSpent: n})
			want -= int64(n)
		case 2:
			s.InsertPurchase(store.UsagePurchase{AppID: app.ID, MinutesPurchased: int64(n), CoinsSpent: n, PurchasedAt: now})
			want -= int64(n)
		}

		got, err := l.Balance()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("step %d: balance %d, reference %d", i, got, want)
		}
	}

	execs, _ := s.ListExecutions()
	reds, _ := s.ListRedemptions()
	purs, _ := s.ListPurchases()
	if got := Fold(execs, reds, purs); got != want {
		t.Fatalf("Fold = %d, reference %d", got, want)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		execs []store.TaskExecution
		reds  []store.RewardRedemption
		purs  []store.UsagePurchase
		want  int64
	}{
		{"earn only", []store.TaskExecution{{CoinsAwarded: 5}, {CoinsAwarded: 7}}, nil, nil, 12},
		{"skipped awards nothing", []store.TaskExecution{{Status: store.StatusSkipped}}, nil, nil, 0},
		{"spend both ways", []store.TaskExecution{{CoinsAwarded: 20}}, []store.RewardRedemption{{CoinsSpent: 5}}, []store.UsagePurchase{{CoinsSpent: 10}}, 5},
		{"neutralizing negative", nil, []store.RewardRedemption{{CoinsSpent: -4}}, []store.UsagePurchase{{CoinsSpent: 4}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.execs, tt.reds, tt.purs); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaily(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	days := []string{"2024-03-04", "2024-03-05"}

	execs := []store.TaskExecution{
		{Date: "2024-03-04", CoinsAwarded: 10},
		{Date: "2024-03-05", CoinsAwarded: 3},
		{Date: "2024-03-05", CoinsAwarded: 4},
		{Date: "2024-02-01", CoinsAwarded: 100}, // outside the window
	}
	reds := []store.RewardRedemption{
		// 23:30 UTC on the 4th is already the 5th in loc.
		{RedeemedAt: time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC), CoinsSpent: 5},
	}
	purs := []store.UsagePurchase{
		{PurchasedAt: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), CoinsSpent: 2},
	}

	got := Daily(days, loc, execs, reds, purs)
	want := []store.DailyCoins{
		{Date: "2024-03-04", Earned: 10, Spent: 2},
		{Date: "2024-03-05", Earned: 7, Spent: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d days, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
