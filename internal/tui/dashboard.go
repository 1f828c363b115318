package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/earntime/internal/blocker"
	"github.com/sadopc/earntime/internal/service"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/usage"
)

type dashboardModel struct {
	svc    *service.Services
	width  int
	height int

	balance int64
	pending []store.TaskDefinition
	apps    []usage.Status
	diag    blocker.Status
	err     error
}

func newDashboardModel(svc *service.Services) dashboardModel {
	return dashboardModel{svc: svc}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	balance int64
	pending []store.TaskDefinition
	apps    []usage.Status
	diag    blocker.Status
	err     error
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		var msg dashboardDataMsg
		today := d.svc.Calendar.Today()

		msg.balance, msg.err = d.svc.Balance()
		if msg.err != nil {
			return msg
		}
		msg.pending, msg.err = d.svc.Tasks.PendingMandatory(today)
		if msg.err != nil {
			return msg
		}
		msg.apps, msg.err = d.svc.Usage.Overview(today)
		msg.diag = d.svc.Blocker.Diagnostics().Snapshot()
		return msg
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(dashboardDataMsg); ok {
		d.err = msg.err
		if msg.err == nil {
			d.balance = msg.balance
			d.pending = msg.pending
			d.apps = msg.apps
			d.diag = msg.diag
		}
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderBalancePanel(contentWidth),
		d.renderMandatoryPanel(contentWidth),
		d.renderAppsPanel(contentWidth),
		d.renderDiagnosticsPanel(contentWidth),
	)
}

func (d dashboardModel) renderBalancePanel(w int) string {
	style := balanceStyle
	if d.balance < 0 {
		style = balanceNegativeStyle
	}
	amount := style.Width(w - 6).Render(formatCoins(d.balance))

	hint := mutedStyle.Render("Complete tasks to earn coins")
	if d.err != nil {
		hint = errorStyle.Render("Error: " + d.err.Error())
	}

	content := lipgloss.JoinVertical(lipgloss.Center, amount, hint)
	return activePanelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderMandatoryPanel(w int) string {
	title := titleStyle.Render("Mandatory today")
	if len(d.pending) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			successStyle.Render("✓ All done"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title + "  " + warningStyle.Render(fmt.Sprintf("%d pending", len(d.pending)))}
	for _, t := range d.pending {
		rows = append(rows, fmt.Sprintf("  %s %s", warningStyle.Render("●"), t.Name))
	}
	rows = append(rows, mutedStyle.Render("  Tracked apps stay blocked until these are done or skipped"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderAppsPanel(w int) string {
	title := titleStyle.Render("Apps today")
	if len(d.apps) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No tracked apps. Press 4 to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title}
	for _, s := range d.apps {
		remaining := highlightStyle.Render(formatMinutes(s.Remaining) + " left")
		if s.Remaining <= 0 {
			remaining = errorStyle.Render("exhausted")
		}
		marker := ""
		if s.App.NightOverrideEnabled {
			marker = warningStyle.Render(" ☾")
		}
		rows = append(rows, fmt.Sprintf("  %-20s %7s / %-7s %s%s",
			s.App.Name, formatMinutes(s.Used), formatMinutes(s.Limit), remaining, marker))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderDiagnosticsPanel(w int) string {
	title := titleStyle.Render("Blocker")
	if d.diag.Cycles == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No decision cycle has run yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	access := successStyle.Render("granted")
	if !d.diag.HasUsageAccess {
		access = errorStyle.Render("missing")
	}
	foreground := d.diag.LastCheckedPackage
	if foreground == "" {
		foreground = "-"
	}

	rows := []string{
		title,
		fmt.Sprintf("  %-16s %s", "usage access", access),
		fmt.Sprintf("  %-16s %s", "foreground", foreground),
		fmt.Sprintf("  %-16s %s", "state", d.diag.LastState),
		fmt.Sprintf("  %-16s %s", "last cycle", d.diag.LastCycleAt.Format("15:04:05")),
	}
	if d.diag.LastBlockedPackage != "" {
		rows = append(rows, fmt.Sprintf("  %-16s %s", "last blocked", d.diag.LastBlockedPackage))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
