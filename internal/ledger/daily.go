package ledger

import (
	"time"

	"github.com/sadopc/earntime/internal/store"
)

// Daily buckets the coin flow by day for each date in days. Executions are
// bucketed by their recorded date, redemptions and purchases by the local
// date of their instant in loc. Dates outside days are ignored.
func Daily(days []string, loc *time.Location, execs []store.TaskExecution, redemptions []store.RewardRedemption, purchases []store.UsagePurchase) []store.DailyCoins {
	if loc == nil {
		loc = time.Local
	}
	out := make([]store.DailyCoins, len(days))
	idx := make(map[string]int, len(days))
	for i, d := range days {
		out[i].Date = d
		idx[d] = i
	}

	for _, e := range execs {
		if i, ok := idx[e.Date]; ok {
			out[i].Earned += e.CoinsAwarded
		}
	}
	for _, r := range redemptions {
		if i, ok := idx[r.RedeemedAt.In(loc).Format(store.DateLayout)]; ok {
			out[i].Spent += r.CoinsSpent
		}
	}
	for _, p := range purchases {
		if i, ok := idx[p.PurchasedAt.In(loc).Format(store.DateLayout)]; ok {
			out[i].Spent += p.CoinsSpent
		}
	}
	return out
}
