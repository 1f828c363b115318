package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(n int) *int { return &n }

// seedApp is a test helper that creates a tracked app with the given cost.
func seedApp(t *testing.T, s *Store, pkg string, cost float64) *TrackedApp {
	t.Helper()
	a, err := s.CreateTrackedApp(TrackedApp{Name: pkg, PackageName: pkg, CostPerMinute: cost})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	return a
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/earntime.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTaskDefinition(TaskDefinition{Name: "Read", Recurrence: RecurrenceDaily}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migration is not re-run.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	defs, err := s2.ListTaskDefinitions(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition after reopen, got %d", len(defs))
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Task definitions
// ============================================================

func TestCreateAndGetTaskDefinition(t *testing.T) {
	s := newTestStore(t)
	d, err := s.CreateTaskDefinition(TaskDefinition{
		Name:                 "Push-ups",
		Mandatory:            true,
		RewardCoins:          10,
		RecurringRewardCoins: intp(3),
		Recurrence:           RecurrenceLimited,
		MaxExecutionsPerDay:  intp(4),
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !d.Mandatory || d.RewardCoins != 10 || d.Recurrence != RecurrenceLimited {
		t.Fatalf("unexpected definition: %+v", d)
	}
	if d.RecurringRewardCoins == nil || *d.RecurringRewardCoins != 3 {
		t.Fatalf("recurring reward not stored: %v", d.RecurringRewardCoins)
	}
	if d.MaxExecutionsPerDay == nil || *d.MaxExecutionsPerDay != 4 {
		t.Fatalf("max executions not stored: %v", d.MaxExecutionsPerDay)
	}
}

func TestTaskDefinitionNullableFields(t *testing.T) {
	s := newTestStore(t)
	d, err := s.CreateTaskDefinition(TaskDefinition{Name: "Walk", RewardCoins: 5, Recurrence: RecurrenceDaily})
	if err != nil {
		t.Fatal(err)
	}
	if d.RecurringRewardCoins != nil || d.MaxExecutionsPerDay != nil {
		t.Fatalf("expected nil optional fields, got %+v", d)
	}
}

func TestGetTaskDefinitionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTaskDefinition("nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestArchiveTaskDefinition(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.CreateTaskDefinition(TaskDefinition{Name: "Old", Recurrence: RecurrenceDaily})
	s.CreateTaskDefinition(TaskDefinition{Name: "New", Recurrence: RecurrenceDaily})

	if err := s.ArchiveTaskDefinition(d.ID); err != nil {
		t.Fatal(err)
	}

	active, _ := s.ListTaskDefinitions(false)
	if len(active) != 1 || active[0].Name != "New" {
		t.Fatalf("expected only New active, got %+v", active)
	}
	all, _ := s.ListTaskDefinitions(true)
	if len(all) != 2 {
		t.Fatalf("expected 2 with archived, got %d", len(all))
	}
}

func TestArchiveTaskDefinitionMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.ArchiveTaskDefinition("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateTaskDefinition(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.CreateTaskDefinition(TaskDefinition{Name: "Read", RewardCoins: 5, Recurrence: RecurrenceDaily})
	d.Name = "Read 20 pages"
	d.RewardCoins = 8
	d.Recurrence = RecurrenceUnlimited
	if err := s.UpdateTaskDefinition(*d); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTaskDefinition(d.ID)
	if got.Name != "Read 20 pages" || got.RewardCoins != 8 || got.Recurrence != RecurrenceUnlimited {
		t.Fatalf("update not applied: %+v", got)
	}
}

// ============================================================
// Executions
// ============================================================

func TestInsertAndCountExecutions(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.CreateTaskDefinition(TaskDefinition{Name: "Read", RewardCoins: 5, Recurrence: RecurrenceUnlimited})

	for _, st := range []ExecutionStatus{StatusDone, StatusDone, StatusSkipped} {
		if _, err := s.InsertExecution(TaskExecution{
			TaskDefinitionID: d.ID, Date: "2024-03-04", Time: "10:00:00", Status: st, CoinsAwarded: 5,
		}); err != nil {
			t.Fatal(err)
		}
	}
	s.InsertExecution(TaskExecution{TaskDefinitionID: d.ID, Date: "2024-03-05", Status: StatusDone, CoinsAwarded: 5})

	done, err := s.CountExecutions(d.ID, "2024-03-04", StatusDone)
	if err != nil {
		t.Fatal(err)
	}
	if done != 2 {
		t.Fatalf("expected 2 DONE, got %d", done)
	}
	skipped, _ := s.CountExecutions(d.ID, "2024-03-04", StatusSkipped)
	if skipped != 1 {
		t.Fatalf("expected 1 SKIPPED, got %d", skipped)
	}

	day, _ := s.ListExecutionsForDate("2024-03-05")
	if len(day) != 1 {
		t.Fatalf("expected 1 execution on 03-05, got %d", len(day))
	}
	between, _ := s.ListExecutionsBetween("2024-03-01", "2024-03-04")
	if len(between) != 3 {
		t.Fatalf("expected 3 executions in range, got %d", len(between))
	}
}

func TestExecutionRequiresDefinition(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertExecution(TaskExecution{TaskDefinitionID: "ghost", Date: "2024-03-04", Status: StatusDone})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestSumCoinsAwarded(t *testing.T) {
	s := newTestStore(t)
	if total, _ := s.SumCoinsAwarded(); total != 0 {
		t.Fatalf("expected 0 on empty store, got %d", total)
	}
	d, _ := s.CreateTaskDefinition(TaskDefinition{Name: "Read", Recurrence: RecurrenceUnlimited})
	s.InsertExecution(TaskExecution{TaskDefinitionID: d.ID, Date: "2024-03-04", Status: StatusDone, CoinsAwarded: 7})
	s.InsertExecution(TaskExecution{TaskDefinitionID: d.ID, Date: "2024-03-04", Status: StatusDone, CoinsAwarded: 3})
	if total, _ := s.SumCoinsAwarded(); total != 10 {
		t.Fatalf("expected 10, got %d", total)
	}
}

// ============================================================
// Rewards
// ============================================================

func TestRewardDefinitionsAndRedemptions(t *testing.T) {
	s := newTestStore(t)
	r, err := s.CreateRewardDefinition(RewardDefinition{Name: "Movie", Description: "one film", CoinCost: 40})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 4, 20, 15, 30, 0, time.UTC)
	red, err := s.InsertRedemption(RewardRedemption{RewardDefinitionID: r.ID, RedeemedAt: at, CoinsSpent: 40})
	if err != nil {
		t.Fatal(err)
	}
	if red.ID == "" {
		t.Fatal("expected generated ID")
	}

	list, _ := s.ListRedemptions()
	if len(list) != 1 || !list[0].RedeemedAt.Equal(at) || list[0].CoinsSpent != 40 {
		t.Fatalf("unexpected redemptions: %+v", list)
	}
	if total, _ := s.SumRedemptionCoins(); total != 40 {
		t.Fatalf("expected 40 spent, got %d", total)
	}

	s.ArchiveRewardDefinition(r.ID)
	if active, _ := s.ListRewardDefinitions(false); len(active) != 0 {
		t.Fatalf("expected no active rewards, got %d", len(active))
	}
}

// ============================================================
// Tracked apps
// ============================================================

func TestTrackedAppByPackage(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1.5)

	got, err := s.GetTrackedAppByPackage("com.example.video")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID || got.CostPerMinute != 1.5 {
		t.Fatalf("unexpected app: %+v", got)
	}
	if _, err := s.GetTrackedAppByPackage("com.other"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestTrackedAppPackageUnique(t *testing.T) {
	s := newTestStore(t)
	seedApp(t, s, "com.example.video", 1)
	if _, err := s.CreateTrackedApp(TrackedApp{Name: "dup", PackageName: "com.example.video"}); err == nil {
		t.Fatal("expected unique violation")
	}
}

func TestNightOverrideSetAndClear(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)
	at := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)

	if err := s.SetNightOverride(a.ID, at); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTrackedApp(a.ID)
	if !got.NightOverrideEnabled || got.NightOverrideActivatedAt == nil || !got.NightOverrideActivatedAt.Equal(at) {
		t.Fatalf("override not stored: %+v", got)
	}

	if err := s.ClearNightOverride(a.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetTrackedApp(a.ID)
	if got.NightOverrideEnabled || got.NightOverrideActivatedAt != nil {
		t.Fatalf("override not cleared: %+v", got)
	}
}

func TestNightOverrideMalformedTimestamp(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)
	s.db.Exec(`UPDATE tracked_apps SET night_override_enabled = 1, night_override_activated_at = 'yesterday-ish' WHERE id = ?`, a.ID)

	got, err := s.GetTrackedApp(a.ID)
	if err != nil {
		t.Fatalf("malformed timestamp must not fail the read: %v", err)
	}
	if got.NightOverrideErr == nil {
		t.Fatal("expected NightOverrideErr")
	}
	if got.NightOverrideActivatedAt != nil {
		t.Fatal("expected nil activation time")
	}
}

func TestUpdateTrackedApp(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)
	a.CostPerMinute = 2.5
	a.PurchasedMinutesTotal = 45
	a.Blocked = true
	if err := s.UpdateTrackedApp(*a); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTrackedApp(a.ID)
	if got.CostPerMinute != 2.5 || got.PurchasedMinutesTotal != 45 || !got.Blocked {
		t.Fatalf("update not applied: %+v", got)
	}
}

// ============================================================
// Usage and purchases
// ============================================================

func TestUpsertUsageOverwrites(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)

	s.UpsertUsageAggregate(a.ID, "2024-03-04", 10)
	s.UpsertUsageAggregate(a.ID, "2024-03-04", 25)
	s.UpsertUsageAggregate(a.ID, "2024-03-05", 3)

	used, err := s.UsedMinutes(a.ID, "2024-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if used != 25 {
		t.Fatalf("expected overwrite to 25, got %d", used)
	}
	all, _ := s.ListUsageAggregates()
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
	if used, _ := s.UsedMinutes(a.ID, "2024-03-06"); used != 0 {
		t.Fatalf("expected 0 for missing day, got %d", used)
	}
}

func TestPurchasesSumAndDelete(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)
	b := seedApp(t, s, "com.example.chat", 1)
	now := time.Now()

	s.InsertPurchase(UsagePurchase{AppID: a.ID, MinutesPurchased: 10, CoinsSpent: 10, PurchasedAt: now})
	s.InsertPurchase(UsagePurchase{AppID: a.ID, MinutesPurchased: 20, CoinsSpent: 20, PurchasedAt: now})
	s.InsertPurchase(UsagePurchase{AppID: b.ID, MinutesPurchased: 5, CoinsSpent: 5, PurchasedAt: now})

	if m, _ := s.SumPurchasedMinutes(a.ID); m != 30 {
		t.Fatalf("expected 30 minutes for a, got %d", m)
	}
	if c, _ := s.SumPurchaseCoins(); c != 35 {
		t.Fatalf("expected 35 coins, got %d", c)
	}

	n, err := s.DeleteAllPurchases()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
	if list, _ := s.ListPurchases(); len(list) != 0 {
		t.Fatalf("expected no purchases, got %d", len(list))
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	s.SetSetting("theme", "light")
	v, err := s.GetSetting("theme")
	if err != nil {
		t.Fatal(err)
	}
	if v != "light" {
		t.Fatalf("expected light, got %q", v)
	}
	all, _ := s.GetAllSettings()
	if len(all) != 1 {
		t.Fatalf("expected 1 setting, got %d", len(all))
	}
}

func TestInstantSettings(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetInstant(KeyLastDailyPurchaseReset)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil before first run, got %v", got)
	}

	at := time.Date(2024, 3, 4, 6, 0, 1, 0, time.UTC)
	s.SetInstant(KeyLastDailyPurchaseReset, at)
	got, _ = s.GetInstant(KeyLastDailyPurchaseReset)
	if got == nil || !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}

	s.SetSetting(KeyLastWeeklyZeroReset, "garbage")
	if _, err := s.GetInstant(KeyLastWeeklyZeroReset); err == nil {
		t.Fatal("expected parse error")
	}
}

// ============================================================
// Snapshot
// ============================================================

func TestReplaceRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.CreateTaskDefinition(TaskDefinition{Name: "Keep", Recurrence: RecurrenceDaily})
	s.InsertExecution(TaskExecution{TaskDefinitionID: d.ID, Date: "2024-03-04", Status: StatusDone, CoinsAwarded: 5})

	bad := &Snapshot{
		TaskDefinitions: []TaskDefinition{{ID: "t1", Name: "New", Recurrence: RecurrenceDaily}},
		// References a definition that is not in the snapshot.
		TaskExecutions: []TaskExecution{{ID: "e1", TaskDefinitionID: "missing", Date: "2024-03-04", Status: StatusDone}},
	}
	if err := s.Replace(bad); err == nil {
		t.Fatal("expected error")
	}

	defs, _ := s.ListTaskDefinitions(true)
	if len(defs) != 1 || defs[0].Name != "Keep" {
		t.Fatalf("store changed after failed replace: %+v", defs)
	}
	if total, _ := s.SumCoinsAwarded(); total != 5 {
		t.Fatalf("expected executions intact, got total %d", total)
	}
}

func TestReplaceThenDump(t *testing.T) {
	s := newTestStore(t)
	seedApp(t, s, "com.old", 1)

	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		TaskDefinitions:   []TaskDefinition{{ID: "t1", Name: "Read", RewardCoins: 5, Recurrence: RecurrenceDaily}},
		TaskExecutions:    []TaskExecution{{ID: "e1", TaskDefinitionID: "t1", Date: "2024-03-04", Status: StatusDone, CoinsAwarded: 5}},
		RewardDefinitions: []RewardDefinition{{ID: "r1", Name: "Movie", CoinCost: 3}},
		RewardRedemptions: []RewardRedemption{{ID: "rr1", RewardDefinitionID: "r1", RedeemedAt: at, CoinsSpent: 3}},
		TrackedApps:       []TrackedApp{{ID: "a1", Name: "Video", PackageName: "com.video", CostPerMinute: 1}},
		UsageAggregates:   []UsageAggregate{{ID: "u1", AppID: "a1", Date: "2024-03-04", UsedMinutesAutomatic: 12}},
		UsagePurchases:    []UsagePurchase{{ID: "p1", AppID: "a1", MinutesPurchased: 2, CoinsSpent: 2, PurchasedAt: at}},
	}
	if err := s.Replace(snap); err != nil {
		t.Fatal(err)
	}

	got, err := s.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.TrackedApps) != 1 || got.TrackedApps[0].PackageName != "com.video" {
		t.Fatalf("old app not cleared: %+v", got.TrackedApps)
	}
	if len(got.TaskExecutions) != 1 || len(got.RewardRedemptions) != 1 ||
		len(got.UsageAggregates) != 1 || len(got.UsagePurchases) != 1 {
		t.Fatalf("unexpected dump: %+v", got)
	}
}

func TestDeleteAllPurchasesWritesMark(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.example.video", 1)
	s.InsertPurchase(UsagePurchase{AppID: a.ID, MinutesPurchased: 5, CoinsSpent: 5, PurchasedAt: time.Now()})

	at := time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	if _, err := s.DeleteAllPurchases(Setting{Key: KeyLastDailyPurchaseReset, Value: FormatInstant(at)}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetInstant(KeyLastDailyPurchaseReset)
	if got == nil || !got.Equal(at) {
		t.Fatalf("mark not written: %v", got)
	}
}

func TestInsertRedemptionRollsBackMark(t *testing.T) {
	s := newTestStore(t)
	// Unknown reward: the insert fails, so the mark must not be written.
	_, err := s.InsertRedemption(
		RewardRedemption{RewardDefinitionID: "ghost", RedeemedAt: time.Now(), CoinsSpent: 1},
		Setting{Key: KeyLastWeeklyZeroReset, Value: FormatInstant(time.Now())},
	)
	if err == nil {
		t.Fatal("expected foreign key error")
	}
	if got, _ := s.GetInstant(KeyLastWeeklyZeroReset); got != nil {
		t.Fatalf("mark written despite failure: %v", got)
	}
}

// ============================================================
// Debits
// ============================================================

var errBroke = errors.New("not enough coins")

// spend debits coins when the balance allows it.
func spend(s *Store, appID string, coins int) error {
	return s.Debit(func(tx *DebitTx) error {
		bal, err := tx.Balance()
		if err != nil {
			return err
		}
		if bal < int64(coins) {
			return errBroke
		}
		_, err = tx.InsertPurchase(UsagePurchase{AppID: appID, MinutesPurchased: int64(coins), CoinsSpent: coins, PurchasedAt: time.Now()})
		return err
	})
}

func earn(t *testing.T, s *Store, coins int) {
	t.Helper()
	d, err := s.CreateTaskDefinition(TaskDefinition{Name: "Earn", Recurrence: RecurrenceUnlimited})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertExecution(TaskExecution{TaskDefinitionID: d.ID, Date: "2024-03-04", Status: StatusDone, CoinsAwarded: coins}); err != nil {
		t.Fatal(err)
	}
}

func balanceOf(t *testing.T, s *Store) int64 {
	t.Helper()
	var bal int64
	if err := s.Debit(func(tx *DebitTx) error {
		var err error
		bal, err = tx.Balance()
		return err
	}); err != nil {
		t.Fatal(err)
	}
	return bal
}

func TestDebitBalance(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.video", 1)
	r, _ := s.CreateRewardDefinition(RewardDefinition{Name: "Movie", CoinCost: 4})
	earn(t, s, 20)

	err := s.Debit(func(tx *DebitTx) error {
		if _, err := tx.InsertRedemption(RewardRedemption{RewardDefinitionID: r.ID, RedeemedAt: time.Now(), CoinsSpent: 4}); err != nil {
			return err
		}
		_, err := tx.InsertPurchase(UsagePurchase{AppID: a.ID, MinutesPurchased: 6, CoinsSpent: 6, PurchasedAt: time.Now()})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, s); got != 10 {
		t.Fatalf("expected 20 - 4 - 6 = 10, got %d", got)
	}
}

func TestDebitRollsBack(t *testing.T) {
	s := newTestStore(t)
	a := seedApp(t, s, "com.video", 1)
	earn(t, s, 5)

	err := s.Debit(func(tx *DebitTx) error {
		if _, err := tx.InsertPurchase(UsagePurchase{AppID: a.ID, MinutesPurchased: 5, CoinsSpent: 5, PurchasedAt: time.Now()}); err != nil {
			return err
		}
		return errBroke
	})
	if !errors.Is(err, errBroke) {
		t.Fatalf("expected errBroke, got %v", err)
	}
	if list, _ := s.ListPurchases(); len(list) != 0 {
		t.Fatalf("expected rollback, got %d purchases", len(list))
	}
}

func TestDebitSerializesAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	first, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	a := seedApp(t, first, "com.video", 1)
	earn(t, first, 30)

	// A second handle stands in for another process on the same file.
	second, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		s := first
		if i%2 == 1 {
			s = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := spend(s, a.ID, 10); err != nil && !errors.Is(err, errBroke) {
				t.Errorf("spend: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := balanceOf(t, first); got != 0 {
		t.Fatalf("expected exactly three debits and balance 0, got %d", got)
	}
}
