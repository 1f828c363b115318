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

type rewardsModel struct {
	svc    *service.Services
	width  int
	height int

	rewards []store.RewardDefinition
	cursor  int

	formActive bool
	form       *huh.Form

	formName        *string
	formDescription *string
	formCost        *string
}

func newRewardsModel(svc *service.Services) rewardsModel {
	name, desc, cost := "", "", ""
	return rewardsModel{
		svc:             svc,
		formName:        &name,
		formDescription: &desc,
		formCost:        &cost,
	}
}

func (r *rewardsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type rewardsDataMsg struct {
	rewards []store.RewardDefinition
}

func (r rewardsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		rewards, err := r.svc.Rewards.ListRewards(false)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load rewards: %v", err), isError: true}
		}
		return rewardsDataMsg{rewards: rewards}
	}
}

func (r rewardsModel) update(msg tea.Msg) (rewardsModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case rewardsDataMsg:
		r.rewards = msg.rewards
		if r.cursor >= len(r.rewards) {
			r.cursor = max(0, len(r.rewards)-1)
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.rewards)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.Redeem), key.Matches(msg, keys.Enter):
			if len(r.rewards) > 0 {
				return r, r.redeem(r.rewards[r.cursor])
			}
		case key.Matches(msg, keys.New):
			return r.showForm()
		case key.Matches(msg, keys.Delete):
			if len(r.rewards) > 0 {
				return r, r.archive(r.rewards[r.cursor])
			}
		}
	}
	return r, nil
}

func (r rewardsModel) redeem(reward store.RewardDefinition) tea.Cmd {
	return func() tea.Msg {
		if _, err := r.svc.Redeem(reward.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Redeem %s: %v", reward.Name, err), isError: true}
		}
		return actionDoneMsg{text: fmt.Sprintf("Redeemed %s (-%s)", reward.Name, formatCoins(int64(reward.CoinCost)))}
	}
}

func (r rewardsModel) archive(reward store.RewardDefinition) tea.Cmd {
	return func() tea.Msg {
		if err := r.svc.Rewards.ArchiveReward(reward.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Archive %s: %v", reward.Name, err), isError: true}
		}
		return actionDoneMsg{text: "Archived " + reward.Name}
	}
}

func (r rewardsModel) showForm() (rewardsModel, tea.Cmd) {
	*r.formName = ""
	*r.formDescription = ""
	*r.formCost = ""

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Reward Name").Value(r.formName).Validate(required),
			huh.NewInput().Title("Description").Value(r.formDescription),
			huh.NewInput().Title("Cost (coins)").Value(r.formCost).Validate(positiveInt),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r rewardsModel) updateForm(msg tea.Msg) (rewardsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			r.formActive = false
			r.form = nil
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		return r, r.saveForm()
	}
	return r, cmd
}

func (r rewardsModel) saveForm() tea.Cmd {
	cost, _ := strconv.Atoi(strings.TrimSpace(*r.formCost))
	def := store.RewardDefinition{
		Name:        strings.TrimSpace(*r.formName),
		Description: strings.TrimSpace(*r.formDescription),
		CoinCost:    cost,
	}
	return func() tea.Msg {
		if _, err := r.svc.Rewards.CreateReward(def); err != nil {
			return statusMsg{text: fmt.Sprintf("Create reward: %v", err), isError: true}
		}
		return actionDoneMsg{text: "Created " + def.Name}
	}
}

func (r rewardsModel) view() string {
	w := r.width - 4

	if r.formActive && r.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Reward"), "", r.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Rewards")
	if len(r.rewards) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No rewards yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-26s %8s  %s", "Name", "Cost", "Description")))

	for i, rw := range r.rewards {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%-26s %8d", cursor, rw.Name, rw.CoinCost))
		if rw.Description != "" {
			row += "  " + mutedStyle.Render(rw.Description)
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  r/enter: redeem  n: new  d: archive"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
