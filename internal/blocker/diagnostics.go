package blocker

import (
	"sync"
	"time"
)

// Status is a point-in-time copy of the engine's diagnostics.
type Status struct {
	HasUsageAccess       bool
	LastCheckedPackage   string
	LastTrackedAppName   string
	LastRemainingMinutes int64
	LastBlockedPackage   string
	LastState            State
	LastCycleAt          time.Time
	Cycles               int64
}

// Diagnostics is owned by one Engine and written only by it.
type Diagnostics struct {
	mu sync.RWMutex
	s  Status
}

// Snapshot returns a copy safe to use without locking.
func (d *Diagnostics) Snapshot() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.s
}

func (d *Diagnostics) update(fn func(*Status)) {
	d.mu.Lock()
	fn(&d.s)
	d.mu.Unlock()
}

// DiagnosticsReader is the read-only view handed to consumers.
type DiagnosticsReader interface {
	Snapshot() Status
}
