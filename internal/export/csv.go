package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/sadopc/earntime/internal/store"
)

// Movement kinds written to the history CSV.
const (
	KindTask     = "task"
	KindSkip     = "skip"
	KindReward   = "reward"
	KindPurchase = "purchase"
)

type movement struct {
	at      time.Time
	kind    string
	item    string
	coins   int64
	minutes int64
}

// HistoryCSV writes every coin movement in src to path, oldest first, with
// a running balance. Times are rendered in loc.
func HistoryCSV(src Source, loc *time.Location, path string) error {
	snap, err := src.Dump()
	if err != nil {
		return fmt.Errorf("dump ledger: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteHistory(f, snap, loc); err != nil {
		return err
	}
	return f.Close()
}

func WriteHistory(out io.Writer, snap *store.Snapshot, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	w := csv.NewWriter(out)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Time", "Kind", "Item", "Coins", "Minutes", "Duration", "Balance"}); err != nil {
		return err
	}

	var balance int64
	for _, m := range movements(snap, loc) {
		balance += m.coins
		minutes, dur := "", ""
		if m.kind == KindPurchase {
			minutes = strconv.FormatInt(m.minutes, 10)
			dur = formatMinutes(m.minutes)
		}
		row := []string{
			m.at.In(loc).Format(time.RFC3339),
			m.kind,
			m.item,
			strconv.FormatInt(m.coins, 10),
			minutes,
			dur,
			strconv.FormatInt(balance, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func movements(snap *store.Snapshot, loc *time.Location) []movement {
	tasks := make(map[string]string, len(snap.TaskDefinitions))
	for _, d := range snap.TaskDefinitions {
		tasks[d.ID] = d.Name
	}
	rewards := make(map[string]string, len(snap.RewardDefinitions))
	for _, r := range snap.RewardDefinitions {
		rewards[r.ID] = r.Name
	}
	apps := make(map[string]string, len(snap.TrackedApps))
	for _, a := range snap.TrackedApps {
		apps[a.ID] = a.Name
	}

	var out []movement
	for _, e := range snap.TaskExecutions {
		kind := KindTask
		if e.Status == store.StatusSkipped {
			kind = KindSkip
		}
		out = append(out, movement{
			at:    executionTime(e, loc),
			kind:  kind,
			item:  nameOr(tasks, e.TaskDefinitionID),
			coins: int64(e.CoinsAwarded),
		})
	}
	for _, r := range snap.RewardRedemptions {
		out = append(out, movement{
			at:    r.RedeemedAt,
			kind:  KindReward,
			item:  nameOr(rewards, r.RewardDefinitionID),
			coins: -int64(r.CoinsSpent),
		})
	}
	for _, p := range snap.UsagePurchases {
		out = append(out, movement{
			at:      p.PurchasedAt,
			kind:    KindPurchase,
			item:    nameOr(apps, p.AppID),
			coins:   -int64(p.CoinsSpent),
			minutes: p.MinutesPurchased,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].at.Before(out[j].at)
	})
	return out
}

// executionTime places an execution on the timeline. Executions without a
// usable time of day sort at the start of their date.
func executionTime(e store.TaskExecution, loc *time.Location) time.Time {
	if e.Time != "" {
		if t, err := time.ParseInLocation(store.DateLayout+" 15:04:05", e.Date+" "+e.Time, loc); err == nil {
			return t
		}
	}
	t, _ := time.ParseInLocation(store.DateLayout, e.Date, loc)
	return t
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "Unknown"
}

func formatMinutes(mins int64) string {
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
