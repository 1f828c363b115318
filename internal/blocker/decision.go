package blocker

import (
	"context"
	"errors"
	"time"

	"github.com/sadopc/earntime/internal/calendar"
)

// State is the outcome of one evaluation cycle.
type State int

const (
	StateIdle State = iota // nothing resolvable in the foreground
	StateUnmatched
	StateMandatoryPending
	StateNightOverrideActive
	StateTimeAvailable
	StateTimeExhausted
)

func (s State) String() string {
	switch s {
	case StateUnmatched:
		return "Unmatched"
	case StateMandatoryPending:
		return "MandatoryPending"
	case StateNightOverrideActive:
		return "NightOverrideActive"
	case StateTimeAvailable:
		return "TimeAvailable"
	case StateTimeExhausted:
		return "TimeExhausted"
	default:
		return "Idle"
	}
}

type Action int

const (
	ActionNone Action = iota
	ActionAllow
	ActionBlock
	// ActionDismiss asks the presentation layer to take down a block it
	// showed earlier for the package.
	ActionDismiss
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionBlock:
		return "block"
	case ActionDismiss:
		return "dismiss"
	default:
		return "none"
	}
}

type Reason string

const (
	ReasonTimeExhausted    Reason = "time exhausted"
	ReasonMandatoryPending Reason = "mandatory tasks incomplete"
)

// Decision is what a cycle emits for the presentation layer.
type Decision struct {
	State     State
	Action    Action
	Package   string
	AppName   string
	Reason    Reason // set for ActionBlock only
	Remaining int64  // valid for TimeAvailable and TimeExhausted
	At        time.Time
}

// ErrNoUsageAccess is returned (wrapped) by a Resolver that lacks the OS
// permission to observe the foreground app.
var ErrNoUsageAccess = errors.New("usage access not granted")

// Resolver reports the most recently foregrounded package, looking in the
// short window first and falling back to the long one. ok is false when
// nothing could be resolved.
type Resolver interface {
	ForegroundPackage(ctx context.Context, short, long time.Duration) (pkg string, ok bool, err error)
}

// Enforcer hides an application. Failures are logged by the engine and
// retried on the next cycle.
type Enforcer interface {
	Hide(ctx context.Context, pkg string) error
}

// Presenter renders decisions. It must not block.
type Presenter interface {
	Present(Decision)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Decision)

func (f PresenterFunc) Present(d Decision) { f(d) }

// NightOverrideExpiry returns when an override activated at activated stops
// applying: the cutoff on the same day when activated at or before it,
// otherwise the cutoff on the following day.
func NightOverrideExpiry(activated time.Time, cal calendar.Calendar) time.Time {
	cutoff := cal.Cutoff(activated)
	if !activated.After(cutoff) {
		return cutoff
	}
	return cutoff.AddDate(0, 0, 1)
}
