package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/earntime/internal/blocker"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewTasks
	viewRewards
	viewApps
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Tasks", "Rewards", "Apps", "Reports", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// actionDoneMsg reports a successful ledger change. The app refreshes the
// dashboard and the active view on receipt.
type actionDoneMsg struct {
	text string
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type blockMsg blocker.Decision

// --- Helpers ---

func done(text string) tea.Cmd {
	return func() tea.Msg { return actionDoneMsg{text: text} }
}

// formatMinutes renders minutes as "1h05m", or "45m" under an hour.
// Negative values keep their sign.
func formatMinutes(mins int64) string {
	sign := ""
	if mins < 0 {
		sign = "-"
		mins = -mins
	}
	if mins < 60 {
		return fmt.Sprintf("%s%dm", sign, mins)
	}
	return fmt.Sprintf("%s%dh%02dm", sign, mins/60, mins%60)
}

func formatCoins(c int64) string {
	if c == 1 || c == -1 {
		return fmt.Sprintf("%d coin", c)
	}
	return fmt.Sprintf("%d coins", c)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
