package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/earntime/internal/service"
	"github.com/sadopc/earntime/internal/store"
	"github.com/sadopc/earntime/internal/usage"
)

type appsModel struct {
	svc    *service.Services
	width  int
	height int

	apps   []usage.Status
	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "buy", "new", "edit"
	target     store.TrackedApp

	formMinutes *string
	formName    *string
	formPackage *string
	formCost    *string
	formCap     *string
}

func newAppsModel(svc *service.Services) appsModel {
	minutes, name, pkg, cost, hardCap := "", "", "", "", ""
	return appsModel{
		svc:         svc,
		formMinutes: &minutes,
		formName:    &name,
		formPackage: &pkg,
		formCost:    &cost,
		formCap:     &hardCap,
	}
}

func (a *appsModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

type appsDataMsg struct {
	apps []usage.Status
}

func (a appsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		apps, err := a.svc.Usage.Overview(a.svc.Calendar.Today())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load apps: %v", err), isError: true}
		}
		return appsDataMsg{apps: apps}
	}
}

func (a appsModel) selected() (store.TrackedApp, bool) {
	if a.cursor < 0 || a.cursor >= len(a.apps) {
		return store.TrackedApp{}, false
	}
	return a.apps[a.cursor].App, true
}

func (a appsModel) update(msg tea.Msg) (appsModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case appsDataMsg:
		a.apps = msg.apps
		if a.cursor >= len(a.apps) {
			a.cursor = max(0, len(a.apps)-1)
		}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(msg, keys.Down):
			if a.cursor < len(a.apps)-1 {
				a.cursor++
			}
		case key.Matches(msg, keys.Buy):
			if app, ok := a.selected(); ok {
				return a.showBuyForm(app)
			}
		case key.Matches(msg, keys.Override):
			if app, ok := a.selected(); ok {
				return a, a.toggleOverride(app)
			}
		case key.Matches(msg, keys.New):
			return a.showAppForm(nil)
		case key.Matches(msg, keys.Enter):
			if app, ok := a.selected(); ok {
				return a.showAppForm(&app)
			}
		}
	}
	return a, nil
}

func (a appsModel) toggleOverride(app store.TrackedApp) tea.Cmd {
	return func() tea.Msg {
		if app.NightOverrideEnabled {
			if err := a.svc.Usage.ClearNightOverride(app.ID); err != nil {
				return statusMsg{text: fmt.Sprintf("Clear override: %v", err), isError: true}
			}
			return actionDoneMsg{text: "Night override off for " + app.Name}
		}
		if err := a.svc.Usage.ActivateNightOverride(app.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Night override: %v", err), isError: true}
		}
		return actionDoneMsg{text: "Night override on for " + app.Name}
	}
}

func (a appsModel) showBuyForm(app store.TrackedApp) (appsModel, tea.Cmd) {
	*a.formMinutes = strconv.FormatInt(a.svc.Config.Purchase.DefaultMinutes, 10)
	a.formType = "buy"
	a.target = app

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Minutes").
				Description(fmt.Sprintf("%s costs %g coins per minute", app.Name, app.CostPerMinute)).
				Value(a.formMinutes).
				Validate(positiveInt),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a appsModel) showAppForm(app *store.TrackedApp) (appsModel, tea.Cmd) {
	*a.formName = ""
	*a.formPackage = ""
	*a.formCost = "1"
	*a.formCap = "0"
	a.formType = "new"
	a.target = store.TrackedApp{}

	if app != nil {
		*a.formName = app.Name
		*a.formPackage = app.PackageName
		*a.formCost = strconv.FormatFloat(app.CostPerMinute, 'g', -1, 64)
		*a.formCap = strconv.FormatInt(app.PurchasedMinutesTotal, 10)
		a.formType = "edit"
		a.target = *app
	}

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("App Name").Value(a.formName).Validate(required),
			huh.NewInput().Title("Package").Value(a.formPackage).Validate(required),
			huh.NewInput().Title("Cost per minute (coins)").Value(a.formCost).Validate(nonNegativeFloat),
			huh.NewInput().Title("Daily cap in minutes (0 = purchased time)").Value(a.formCap).Validate(nonNegativeInt),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a appsModel) updateForm(msg tea.Msg) (appsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted {
		a.formActive = false
		return a, a.saveForm()
	}
	return a, cmd
}

func (a appsModel) saveForm() tea.Cmd {
	switch a.formType {
	case "buy":
		return a.buy(a.target, *a.formMinutes)
	case "edit":
		return a.saveApp(true)
	default:
		return a.saveApp(false)
	}
}

func (a appsModel) buy(app store.TrackedApp, minutesText string) tea.Cmd {
	minutes, _ := strconv.ParseInt(strings.TrimSpace(minutesText), 10, 64)
	return func() tea.Msg {
		p, err := a.svc.Purchase(app.ID, minutes)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Purchase rejected: %v", err), isError: true}
		}
		return actionDoneMsg{text: fmt.Sprintf("Bought %s of %s (-%s)",
			formatMinutes(p.MinutesPurchased), app.Name, formatCoins(int64(p.CoinsSpent)))}
	}
}

func (a appsModel) saveApp(editing bool) tea.Cmd {
	cost, _ := strconv.ParseFloat(strings.TrimSpace(*a.formCost), 64)
	hardCap, _ := strconv.ParseInt(strings.TrimSpace(*a.formCap), 10, 64)
	app := a.target
	app.Name = strings.TrimSpace(*a.formName)
	app.PackageName = strings.TrimSpace(*a.formPackage)
	app.CostPerMinute = cost
	app.PurchasedMinutesTotal = hardCap

	return func() tea.Msg {
		if editing {
			if err := a.svc.Usage.UpdateApp(app); err != nil {
				return statusMsg{text: fmt.Sprintf("Update app: %v", err), isError: true}
			}
			return actionDoneMsg{text: "Updated " + app.Name}
		}
		if _, err := a.svc.Usage.CreateApp(app); err != nil {
			return statusMsg{text: fmt.Sprintf("Create app: %v", err), isError: true}
		}
		return actionDoneMsg{text: "Tracking " + app.Name}
	}
}

func (a appsModel) view() string {
	w := a.width - 4

	if a.formActive && a.form != nil {
		var title string
		switch a.formType {
		case "buy":
			title = "Buy time for " + a.target.Name
		case "edit":
			title = "Edit App"
		default:
			title = "Track App"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", a.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Tracked Apps")
	if len(a.apps) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tracked apps. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-20s %-24s %8s %8s %8s %9s",
		"Name", "Package", "Cost/min", "Used", "Limit", "Left")))

	for i, s := range a.apps {
		cursor := "  "
		style := normalItemStyle
		if i == a.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%-20s %-24s %8g %8s %8s %9s", cursor,
			s.App.Name, s.App.PackageName, s.App.CostPerMinute,
			formatMinutes(s.Used), formatMinutes(s.Limit), formatMinutes(s.Remaining)))

		var tags []string
		if s.App.PurchasedMinutesTotal > 0 {
			tags = append(tags, "hard cap")
		}
		if s.App.NightOverrideEnabled {
			tags = append(tags, "☾ override")
		}
		if len(tags) > 0 {
			row += "  " + warningStyle.Render(strings.Join(tags, ", "))
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  b: buy time  o: night override  n: new  enter: edit"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func nonNegativeFloat(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return fmt.Errorf("enter a number ≥ 0")
	}
	return nil
}
