package store

import "time"

// DateLayout is the canonical calendar-day format used for executions and
// usage aggregates.
const DateLayout = "2006-01-02"

type Recurrence string

const (
	RecurrenceOneTime   Recurrence = "ONE_TIME"
	RecurrenceDaily     Recurrence = "DAILY"
	RecurrenceUnlimited Recurrence = "UNLIMITED_PER_DAY"
	RecurrenceLimited   Recurrence = "LIMITED_PER_DAY"
)

// Valid reports whether r is one of the known recurrence types.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOneTime, RecurrenceDaily, RecurrenceUnlimited, RecurrenceLimited:
		return true
	}
	return false
}

type ExecutionStatus string

const (
	StatusDone    ExecutionStatus = "DONE"
	StatusSkipped ExecutionStatus = "SKIPPED"
)

type TaskDefinition struct {
	ID                   string
	Name                 string
	Mandatory            bool
	RewardCoins          int
	RecurringRewardCoins *int // used for same-day completions after the first DONE
	Recurrence           Recurrence
	MaxExecutionsPerDay  *int // LIMITED_PER_DAY only
	Archived             bool
}

// TaskExecution is append-only; rows are never updated.
type TaskExecution struct {
	ID               string
	TaskDefinitionID string
	Date             string // YYYY-MM-DD
	Time             string // HH:MM:SS, may be empty
	Status           ExecutionStatus
	CoinsAwarded     int
}

type RewardDefinition struct {
	ID          string
	Name        string
	Description string
	CoinCost    int
	Archived    bool
}

type RewardRedemption struct {
	ID                 string
	RewardDefinitionID string
	RedeemedAt         time.Time
	CoinsSpent         int
}

type TrackedApp struct {
	ID                    string
	Name                  string
	PackageName           string
	CostPerMinute         float64
	PurchasedMinutesTotal int64 // hard daily cap when > 0
	Blocked               bool

	NightOverrideEnabled     bool
	NightOverrideActivatedAt *time.Time
	// NightOverrideErr is set when the stored activation instant could not
	// be parsed; NightOverrideActivatedAt is nil in that case.
	NightOverrideErr error
}

// UsageAggregate holds the OS-observed foreground minutes of one app on one
// day. There is at most one row per (AppID, Date).
type UsageAggregate struct {
	ID                   string
	AppID                string
	Date                 string
	UsedMinutesAutomatic int64
}

type UsagePurchase struct {
	ID               string
	AppID            string
	MinutesPurchased int64
	CoinsSpent       int
	PurchasedAt      time.Time
}

type Setting struct {
	Key   string
	Value string
}

// Snapshot is the full content of the seven ledger tables.
type Snapshot struct {
	TaskDefinitions   []TaskDefinition
	TaskExecutions    []TaskExecution
	RewardDefinitions []RewardDefinition
	RewardRedemptions []RewardRedemption
	TrackedApps       []TrackedApp
	UsageAggregates   []UsageAggregate
	UsagePurchases    []UsagePurchase
}

// DailyCoins is the per-day coin flow used by reports.
type DailyCoins struct {
	Date   string
	Earned int
	Spent  int
}
