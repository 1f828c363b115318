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
)

var markLabels = map[string]string{
	store.KeyLastDailyPurchaseReset: "last purchase reset",
	store.KeyLastWeeklyCoinReset:    "last weekly recalc",
	store.KeyLastWeeklyZeroReset:    "last zero reset",
}

type settingsModel struct {
	svc    *service.Services
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	bonusName  *string
	bonusCoins *string
}

func newSettingsModel(svc *service.Services) settingsModel {
	name, coins := "", ""
	return settingsModel{
		svc:        svc,
		bonusName:  &name,
		bonusCoins: &coins,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := s.svc.Store.GetAllSettings()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load settings: %v", err), isError: true}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Bonus):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.bonusName = "Bonus"
	*s.bonusCoins = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Reason").Value(s.bonusName),
			huh.NewInput().Title("Coins").Value(s.bonusCoins).Validate(positiveInt),
		).Title("Grant bonus"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.grant(*s.bonusName, *s.bonusCoins)
	}

	return s, cmd
}

func (s settingsModel) grant(name, coinsText string) tea.Cmd {
	coins, _ := strconv.Atoi(strings.TrimSpace(coinsText))
	name = strings.TrimSpace(name)
	return func() tea.Msg {
		if _, err := s.svc.Tasks.GrantBonus(name, coins); err != nil {
			return statusMsg{text: fmt.Sprintf("Bonus: %v", err), isError: true}
		}
		return actionDoneMsg{text: fmt.Sprintf("Granted %s", formatCoins(int64(coins)))}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", s.form.View()),
		)
	}

	cfg := s.svc.Config
	tz := cfg.Timezone
	if tz == "" {
		tz = "local"
	}
	enforcer := "disabled"
	if len(cfg.Enforcer.Command) > 0 {
		enforcer = strings.Join(cfg.Enforcer.Command, " ")
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"))
	rows = append(rows, "")
	rows = append(rows, settingRow("database", cfg.DatabasePath))
	rows = append(rows, settingRow("timezone", tz))
	rows = append(rows, settingRow("day cutoff", fmt.Sprintf("%02d:00", cfg.DayCutoffHour)))
	rows = append(rows, settingRow("decision interval", cfg.GetDecisionInterval().String()))
	rows = append(rows, settingRow("usage interval", cfg.GetUsageInterval().String()))
	rows = append(rows, settingRow("recurrence caps", onOff(cfg.Tasks.EnforceRecurrenceCaps)))
	rows = append(rows, settingRow("default purchase", formatMinutes(cfg.Purchase.DefaultMinutes)))
	rows = append(rows, settingRow("foreground file", cfg.Resolver.ForegroundFile))
	rows = append(rows, settingRow("usage file", cfg.Usage.File))
	rows = append(rows, settingRow("enforcer", enforcer))

	rows = append(rows, "")
	rows = append(rows, titleStyle.Render("Housekeeping"))
	if len(s.settings) == 0 {
		rows = append(rows, mutedStyle.Render("  No reset has run yet"))
	}
	for _, setting := range s.settings {
		label, ok := markLabels[setting.Key]
		if !ok {
			label = setting.Key
		}
		rows = append(rows, settingRow(label, setting.Value))
	}

	rows = append(rows, "")
	rows = append(rows, subtitleStyle.Render("Press g to grant bonus coins"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func settingRow(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render(label), highlightStyle.Render(value))
}

func onOff(b bool) string {
	if b {
		return "enforced"
	}
	return "off"
}
