package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/earntime/internal/store"
)

// FormatVersion is written into every document and is the only version
// Import accepts.
const FormatVersion = 1

// ErrMalformed is returned when an import document cannot be decoded or
// fails validation. The store is left untouched in that case.
var ErrMalformed = errors.New("malformed export document")

// Source is anything that can produce the full ledger content.
type Source interface {
	Dump() (*store.Snapshot, error)
}

// Sink atomically replaces the full ledger content.
type Sink interface {
	Replace(snap *store.Snapshot) error
}

// Tables are pointers so a document that omits one can be told apart from
// one that carries an empty table.
type jsonExport struct {
	Version           int                     `json:"version"`
	ExportedAt        string                  `json:"exported_at"`
	TaskDefinitions   *[]jsonTaskDefinition   `json:"task_definitions"`
	TaskExecutions    *[]jsonTaskExecution    `json:"task_executions"`
	RewardDefinitions *[]jsonRewardDefinition `json:"reward_definitions"`
	RewardRedemptions *[]jsonRewardRedemption `json:"reward_redemptions"`
	TrackedApps       *[]jsonTrackedApp       `json:"tracked_apps"`
	UsageAggregates   *[]jsonUsageAggregate   `json:"usage_aggregates"`
	UsagePurchases    *[]jsonUsagePurchase    `json:"usage_purchases"`
}

type jsonTaskDefinition struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Mandatory            bool   `json:"mandatory"`
	RewardCoins          int    `json:"reward_coins"`
	RecurringRewardCoins *int   `json:"recurring_reward_coins,omitempty"`
	Recurrence           string `json:"recurrence"`
	MaxExecutionsPerDay  *int   `json:"max_executions_per_day,omitempty"`
	Archived             bool   `json:"archived"`
}

type jsonTaskExecution struct {
	ID               string `json:"id"`
	TaskDefinitionID string `json:"task_definition_id"`
	Date             string `json:"date"`
	Time             string `json:"time,omitempty"`
	Status           string `json:"status"`
	CoinsAwarded     int    `json:"coins_awarded"`
}

type jsonRewardDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CoinCost    int    `json:"coin_cost"`
	Archived    bool   `json:"archived"`
}

type jsonRewardRedemption struct {
	ID                 string `json:"id"`
	RewardDefinitionID string `json:"reward_definition_id"`
	RedeemedAt         string `json:"redeemed_at"`
	CoinsSpent         int    `json:"coins_spent"`
}

type jsonTrackedApp struct {
	ID                       string  `json:"id"`
	Name                     string  `json:"name"`
	PackageName              string  `json:"package_name"`
	CostPerMinute            float64 `json:"cost_per_minute"`
	PurchasedMinutesTotal    int64   `json:"purchased_minutes_total"`
	Blocked                  bool    `json:"blocked"`
	NightOverrideEnabled     bool    `json:"night_override_enabled"`
	NightOverrideActivatedAt string  `json:"night_override_activated_at,omitempty"`
}

type jsonUsageAggregate struct {
	ID                   string `json:"id"`
	AppID                string `json:"app_id"`
	Date                 string `json:"date"`
	UsedMinutesAutomatic int64  `json:"used_minutes_automatic"`
}

type jsonUsagePurchase struct {
	ID               string `json:"id"`
	AppID            string `json:"app_id"`
	MinutesPurchased int64  `json:"minutes_purchased"`
	CoinsSpent       int    `json:"coins_spent"`
	PurchasedAt      string `json:"purchased_at"`
}

// ToJSON writes the full ledger of src to path.
func ToJSON(src Source, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := Export(f, src, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

// FromJSON replaces the ledger of dst with the document at path.
func FromJSON(dst Sink, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()
	return Import(f, dst)
}

// Export encodes the full ledger of src as an indented JSON document.
func Export(w io.Writer, src Source, exportedAt time.Time) error {
	snap, err := src.Dump()
	if err != nil {
		return fmt.Errorf("dump ledger: %w", err)
	}

	data, err := json.MarshalIndent(encode(snap, exportedAt), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Import decodes and validates the whole document before handing it to
// dst, so a bad document never clears anything.
func Import(r io.Reader, dst Sink) error {
	snap, err := Decode(r)
	if err != nil {
		return err
	}
	if err := dst.Replace(snap); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Decode reads a document and converts it to a snapshot. Every failure
// wraps ErrMalformed.
func Decode(r io.Reader) (*store.Snapshot, error) {
	var doc jsonExport
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// The document must be the whole input.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}
	snap, err := decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snap, nil
}

func encode(snap *store.Snapshot, exportedAt time.Time) jsonExport {
	defs := make([]jsonTaskDefinition, 0, len(snap.TaskDefinitions))
	for _, d := range snap.TaskDefinitions {
		defs = append(defs, jsonTaskDefinition{
			ID:                   d.ID,
			Name:                 d.Name,
			Mandatory:            d.Mandatory,
			RewardCoins:          d.RewardCoins,
			RecurringRewardCoins: d.RecurringRewardCoins,
			Recurrence:           string(d.Recurrence),
			MaxExecutionsPerDay:  d.MaxExecutionsPerDay,
			Archived:             d.Archived,
		})
	}

	execs := make([]jsonTaskExecution, 0, len(snap.TaskExecutions))
	for _, e := range snap.TaskExecutions {
		execs = append(execs, jsonTaskExecution{
			ID:               e.ID,
			TaskDefinitionID: e.TaskDefinitionID,
			Date:             e.Date,
			Time:             e.Time,
			Status:           string(e.Status),
			CoinsAwarded:     e.CoinsAwarded,
		})
	}

	rewards := make([]jsonRewardDefinition, 0, len(snap.RewardDefinitions))
	for _, r := range snap.RewardDefinitions {
		rewards = append(rewards, jsonRewardDefinition{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			CoinCost:    r.CoinCost,
			Archived:    r.Archived,
		})
	}

	reds := make([]jsonRewardRedemption, 0, len(snap.RewardRedemptions))
	for _, r := range snap.RewardRedemptions {
		reds = append(reds, jsonRewardRedemption{
			ID:                 r.ID,
			RewardDefinitionID: r.RewardDefinitionID,
			RedeemedAt:         store.FormatInstant(r.RedeemedAt),
			CoinsSpent:         r.CoinsSpent,
		})
	}

	apps := make([]jsonTrackedApp, 0, len(snap.TrackedApps))
	for _, a := range snap.TrackedApps {
		activated := ""
		if a.NightOverrideActivatedAt != nil {
			activated = store.FormatInstant(*a.NightOverrideActivatedAt)
		}
		apps = append(apps, jsonTrackedApp{
			ID:                       a.ID,
			Name:                     a.Name,
			PackageName:              a.PackageName,
			CostPerMinute:            a.CostPerMinute,
			PurchasedMinutesTotal:    a.PurchasedMinutesTotal,
			Blocked:                  a.Blocked,
			NightOverrideEnabled:     a.NightOverrideEnabled,
			NightOverrideActivatedAt: activated,
		})
	}

	usage := make([]jsonUsageAggregate, 0, len(snap.UsageAggregates))
	for _, u := range snap.UsageAggregates {
		usage = append(usage, jsonUsageAggregate{
			ID:                   u.ID,
			AppID:                u.AppID,
			Date:                 u.Date,
			UsedMinutesAutomatic: u.UsedMinutesAutomatic,
		})
	}

	purchases := make([]jsonUsagePurchase, 0, len(snap.UsagePurchases))
	for _, p := range snap.UsagePurchases {
		purchases = append(purchases, jsonUsagePurchase{
			ID:               p.ID,
			AppID:            p.AppID,
			MinutesPurchased: p.MinutesPurchased,
			CoinsSpent:       p.CoinsSpent,
			PurchasedAt:      store.FormatInstant(p.PurchasedAt),
		})
	}

	return jsonExport{
		Version:           FormatVersion,
		ExportedAt:        store.FormatInstant(exportedAt),
		TaskDefinitions:   &defs,
		TaskExecutions:    &execs,
		RewardDefinitions: &rewards,
		RewardRedemptions: &reds,
		TrackedApps:       &apps,
		UsageAggregates:   &usage,
		UsagePurchases:    &purchases,
	}
}

func decode(doc *jsonExport) (*store.Snapshot, error) {
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported version %d", doc.Version)
	}
	switch {
	case doc.TaskDefinitions == nil:
		return nil, errors.New("missing task_definitions")
	case doc.TaskExecutions == nil:
		return nil, errors.New("missing task_executions")
	case doc.RewardDefinitions == nil:
		return nil, errors.New("missing reward_definitions")
	case doc.RewardRedemptions == nil:
		return nil, errors.New("missing reward_redemptions")
	case doc.TrackedApps == nil:
		return nil, errors.New("missing tracked_apps")
	case doc.UsageAggregates == nil:
		return nil, errors.New("missing usage_aggregates")
	case doc.UsagePurchases == nil:
		return nil, errors.New("missing usage_purchases")
	}

	var snap store.Snapshot

	taskIDs := ids{}
	for i, d := range *doc.TaskDefinitions {
		if err := taskIDs.add(d.ID); err != nil {
			return nil, fmt.Errorf("task_definitions[%d]: %w", i, err)
		}
		rec := store.Recurrence(d.Recurrence)
		if !rec.Valid() {
			return nil, fmt.Errorf("task_definitions[%d]: unknown recurrence %q", i, d.Recurrence)
		}
		snap.TaskDefinitions = append(snap.TaskDefinitions, store.TaskDefinition{
			ID:                   d.ID,
			Name:                 d.Name,
			Mandatory:            d.Mandatory,
			RewardCoins:          d.RewardCoins,
			RecurringRewardCoins: d.RecurringRewardCoins,
			Recurrence:           rec,
			MaxExecutionsPerDay:  d.MaxExecutionsPerDay,
			Archived:             d.Archived,
		})
	}

	execIDs := ids{}
	for i, e := range *doc.TaskExecutions {
		if err := execIDs.add(e.ID); err != nil {
			return nil, fmt.Errorf("task_executions[%d]: %w", i, err)
		}
		if !taskIDs[e.TaskDefinitionID] {
			return nil, fmt.Errorf("task_executions[%d]: unknown task %q", i, e.TaskDefinitionID)
		}
		if _, err := time.Parse(store.DateLayout, e.Date); err != nil {
			return nil, fmt.Errorf("task_executions[%d]: bad date %q", i, e.Date)
		}
		status := store.ExecutionStatus(e.Status)
		if status != store.StatusDone && status != store.StatusSkipped {
			return nil, fmt.Errorf("task_executions[%d]: unknown status %q", i, e.Status)
		}
		snap.TaskExecutions = append(snap.TaskExecutions, store.TaskExecution{
			ID:               e.ID,
			TaskDefinitionID: e.TaskDefinitionID,
			Date:             e.Date,
			Time:             e.Time,
			Status:           status,
			CoinsAwarded:     e.CoinsAwarded,
		})
	}

	rewardIDs := ids{}
	for i, r := range *doc.RewardDefinitions {
		if err := rewardIDs.add(r.ID); err != nil {
			return nil, fmt.Errorf("reward_definitions[%d]: %w", i, err)
		}
		snap.RewardDefinitions = append(snap.RewardDefinitions, store.RewardDefinition{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			CoinCost:    r.CoinCost,
			Archived:    r.Archived,
		})
	}

	redIDs := ids{}
	for i, r := range *doc.RewardRedemptions {
		if err := redIDs.add(r.ID); err != nil {
			return nil, fmt.Errorf("reward_redemptions[%d]: %w", i, err)
		}
		if !rewardIDs[r.RewardDefinitionID] {
			return nil, fmt.Errorf("reward_redemptions[%d]: unknown reward %q", i, r.RewardDefinitionID)
		}
		at, err := time.Parse(time.RFC3339, r.RedeemedAt)
		if err != nil {
			return nil, fmt.Errorf("reward_redemptions[%d]: bad redeemed_at %q", i, r.RedeemedAt)
		}
		snap.RewardRedemptions = append(snap.RewardRedemptions, store.RewardRedemption{
			ID:                 r.ID,
			RewardDefinitionID: r.RewardDefinitionID,
			RedeemedAt:         at.UTC(),
			CoinsSpent:         r.CoinsSpent,
		})
	}

	appIDs := ids{}
	packages := ids{}
	for i, a := range *doc.TrackedApps {
		if err := appIDs.add(a.ID); err != nil {
			return nil, fmt.Errorf("tracked_apps[%d]: %w", i, err)
		}
		if err := packages.add(a.PackageName); err != nil {
			return nil, fmt.Errorf("tracked_apps[%d]: package: %w", i, err)
		}
		app := store.TrackedApp{
			ID:                    a.ID,
			Name:                  a.Name,
			PackageName:           a.PackageName,
			CostPerMinute:         a.CostPerMinute,
			PurchasedMinutesTotal: a.PurchasedMinutesTotal,
			Blocked:               a.Blocked,
			NightOverrideEnabled:  a.NightOverrideEnabled,
		}
		if a.NightOverrideActivatedAt != "" {
			at, err := time.Parse(time.RFC3339, a.NightOverrideActivatedAt)
			if err != nil {
				return nil, fmt.Errorf("tracked_apps[%d]: bad night_override_activated_at %q", i, a.NightOverrideActivatedAt)
			}
			at = at.UTC()
			app.NightOverrideActivatedAt = &at
		}
		snap.TrackedApps = append(snap.TrackedApps, app)
	}

	usageIDs := ids{}
	appDays := ids{}
	for i, u := range *doc.UsageAggregates {
		if err := usageIDs.add(u.ID); err != nil {
			return nil, fmt.Errorf("usage_aggregates[%d]: %w", i, err)
		}
		if !appIDs[u.AppID] {
			return nil, fmt.Errorf("usage_aggregates[%d]: unknown app %q", i, u.AppID)
		}
		if _, err := time.Parse(store.DateLayout, u.Date); err != nil {
			return nil, fmt.Errorf("usage_aggregates[%d]: bad date %q", i, u.Date)
		}
		if err := appDays.add(u.AppID + "/" + u.Date); err != nil {
			return nil, fmt.Errorf("usage_aggregates[%d]: app day: %w", i, err)
		}
		snap.UsageAggregates = append(snap.UsageAggregates, store.UsageAggregate{
			ID:                   u.ID,
			AppID:                u.AppID,
			Date:                 u.Date,
			UsedMinutesAutomatic: u.UsedMinutesAutomatic,
		})
	}

	purchaseIDs := ids{}
	for i, p := range *doc.UsagePurchases {
		if err := purchaseIDs.add(p.ID); err != nil {
			return nil, fmt.Errorf("usage_purchases[%d]: %w", i, err)
		}
		if !appIDs[p.AppID] {
			return nil, fmt.Errorf("usage_purchases[%d]: unknown app %q", i, p.AppID)
		}
		at, err := time.Parse(time.RFC3339, p.PurchasedAt)
		if err != nil {
			return nil, fmt.Errorf("usage_purchases[%d]: bad purchased_at %q", i, p.PurchasedAt)
		}
		snap.UsagePurchases = append(snap.UsagePurchases, store.UsagePurchase{
			ID:               p.ID,
			AppID:            p.AppID,
			MinutesPurchased: p.MinutesPurchased,
			CoinsSpent:       p.CoinsSpent,
			PurchasedAt:      at.UTC(),
		})
	}

	return &snap, nil
}

// ids is a set of keys that rejects empty and repeated values.
type ids map[string]bool

func (s ids) add(id string) error {
	if id == "" {
		return errors.New("empty id")
	}
	if s[id] {
		return fmt.Errorf("duplicate id %q", id)
	}
	s[id] = true
	return nil
}
