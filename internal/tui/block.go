package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/earntime/internal/blocker"
	"github.com/sadopc/earntime/internal/service"
)

// Presenter forwards block and dismiss decisions to the running program.
// Present never blocks; decisions are dropped when the buffer is full
// since the engine repeats a block on every cycle.
type Presenter struct {
	ch chan blocker.Decision
}

func NewPresenter() *Presenter {
	return &Presenter{ch: make(chan blocker.Decision, 16)}
}

func (p *Presenter) Present(d blocker.Decision) {
	if d.Action != blocker.ActionBlock && d.Action != blocker.ActionDismiss {
		return
	}
	select {
	case p.ch <- d:
	default:
	}
}

func (p *Presenter) Decisions() <-chan blocker.Decision {
	return p.ch
}

func waitForDecision(ch <-chan blocker.Decision) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return nil
		}
		return blockMsg(d)
	}
}

type purchaseDoneMsg struct {
	pkg     string
	minutes int64
}

// blockModel is the full-screen overlay shown while a tracked app is
// blocked.
type blockModel struct {
	svc    *service.Services
	width  int
	height int

	active   bool
	decision blocker.Decision
}

func newBlockModel(svc *service.Services) blockModel {
	return blockModel{svc: svc}
}

func (b *blockModel) setSize(w, h int) {
	b.width = w
	b.height = h
}

func (b blockModel) canBuy() bool {
	return b.decision.Reason == blocker.ReasonTimeExhausted
}

func (b blockModel) update(msg tea.Msg) (blockModel, tea.Cmd) {
	switch msg := msg.(type) {
	case blockMsg:
		d := blocker.Decision(msg)
		switch d.Action {
		case blocker.ActionBlock:
			b.active = true
			b.decision = d
		case blocker.ActionDismiss:
			if d.Package == b.decision.Package {
				b.active = false
			}
		}
		return b, nil

	case purchaseDoneMsg:
		if msg.pkg == b.decision.Package {
			b.active = false
		}
		return b, done(fmt.Sprintf("Bought %s for %s", formatMinutes(msg.minutes), b.decision.AppName))

	case tea.KeyMsg:
		if !b.active {
			return b, nil
		}
		switch {
		case key.Matches(msg, keys.Buy):
			if b.canBuy() {
				return b, b.buy()
			}
		case key.Matches(msg, keys.Back):
			b.active = false
		}
	}
	return b, nil
}

func (b blockModel) buy() tea.Cmd {
	pkg := b.decision.Package
	minutes := b.svc.Config.Purchase.DefaultMinutes
	return func() tea.Msg {
		if _, err := b.svc.Blocker.BuyMoreTime(context.Background(), pkg, minutes); err != nil {
			return statusMsg{text: fmt.Sprintf("Purchase rejected: %v", err), isError: true}
		}
		return purchaseDoneMsg{pkg: pkg, minutes: minutes}
	}
}

func (b blockModel) view() string {
	name := b.decision.AppName
	if name == "" {
		name = b.decision.Package
	}

	rows := []string{
		blockTitleStyle.Render(fmt.Sprintf("%s is blocked", name)),
		"",
		warningStyle.Render(string(b.decision.Reason)),
		"",
	}
	if b.canBuy() {
		minutes := b.svc.Config.Purchase.DefaultMinutes
		rows = append(rows, normalItemStyle.Render(fmt.Sprintf("b: buy %s  esc: close", formatMinutes(minutes))))
	} else {
		rows = append(rows, normalItemStyle.Render("Complete or skip your mandatory tasks first"))
		rows = append(rows, mutedStyle.Render("esc: close"))
	}

	panel := blockPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
	return lipgloss.Place(b.width, max(b.height, lipgloss.Height(panel)), lipgloss.Center, lipgloss.Center, panel)
}
