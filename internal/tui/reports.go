package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/earntime/internal/service"
	"github.com/sadopc/earntime/internal/store"
)

const reportDays = 7

type reportMode int

const (
	reportCoins reportMode = iota
	reportUsage
)

type reportsModel struct {
	svc    *service.Services
	width  int
	height int

	mode   reportMode
	report *service.Report
	offset int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newReportsModel(svc *service.Services) reportsModel {
	return reportsModel{
		svc:   svc,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	report *service.Report
}

// endDate is the last day of the window shown.
func (r reportsModel) endDate() string {
	today, err := r.svc.Calendar.ParseDate(r.svc.Calendar.Today())
	if err != nil {
		return r.svc.Calendar.Today()
	}
	return today.AddDate(0, 0, -reportDays*r.offset).Format(store.DateLayout)
}

func (r reportsModel) refresh() tea.Cmd {
	end := r.endDate()
	return func() tea.Msg {
		rep, err := r.svc.DailyReport(end, reportDays)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load report: %v", err), isError: true}
		}
		return reportsDataMsg{report: rep}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.report = msg.report
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			if r.mode == reportCoins {
				r.mode = reportUsage
			} else {
				r.mode = reportCoins
			}
			r.buildChart()
			return r, nil
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)
	if r.report == nil {
		return
	}

	earned := lipgloss.NewStyle().Foreground(colorSuccess)
	spent := lipgloss.NewStyle().Foreground(colorAccent)
	used := lipgloss.NewStyle().Foreground(colorSecondary)

	var bars []barchart.BarData
	for _, day := range r.report.Coins {
		label := day.Date
		if t, err := r.svc.Calendar.ParseDate(day.Date); err == nil {
			label = t.Format("Mon 02")
		}

		var values []barchart.BarValue
		switch r.mode {
		case reportUsage:
			values = []barchart.BarValue{
				{Name: "Usage", Value: float64(r.report.Usage[day.Date]), Style: used},
			}
		default:
			values = []barchart.BarValue{
				{Name: "Earned", Value: float64(day.Earned), Style: earned},
				{Name: "Spent", Value: float64(day.Spent), Style: spent},
			}
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	coinsTab := inactiveTabStyle.Render("Coins")
	usageTab := inactiveTabStyle.Render("Usage")
	if r.mode == reportCoins {
		coinsTab = activeTabStyle.Render("Coins")
	} else {
		usageTab = activeTabStyle.Render("Usage")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, coinsTab, usageTab)

	var dateLabel string
	if r.report != nil && len(r.report.Coins) > 0 {
		first := r.report.Coins[0].Date
		last := r.report.Coins[len(r.report.Coins)-1].Date
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s to %s", first, last))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  enter: switch chart")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderLegend(), "", r.renderSummaryTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if r.report == nil || len(r.report.Coins) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %8s %8s %8s %8s", "Date", "Earned", "Spent", "Net", "Usage")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))

	var totalEarned, totalSpent int
	var totalUsage int64
	for _, d := range r.report.Coins {
		minutes := r.report.Usage[d.Date]
		totalEarned += d.Earned
		totalSpent += d.Spent
		totalUsage += minutes
		rows = append(rows, fmt.Sprintf("  %-12s %8d %8d %8s %8s",
			d.Date, d.Earned, d.Spent, signed(d.Earned-d.Spent), formatMinutes(minutes)))
	}

	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))
	rows = append(rows, titleStyle.Render(fmt.Sprintf("  %-12s %8d %8d %8s %8s",
		"Total", totalEarned, totalSpent, signed(totalEarned-totalSpent), formatMinutes(totalUsage))))

	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	if r.mode == reportUsage {
		return "  " + lipgloss.NewStyle().Foreground(colorSecondary).Render("●") + " minutes used"
	}
	return fmt.Sprintf("  %s earned  %s spent",
		successStyle.Render("●"), accentStyle.Render("●"))
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
