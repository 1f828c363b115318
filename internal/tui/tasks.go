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
	"github.com/sadopc/earntime/internal/tasks"
)

var recurrenceLabels = map[store.Recurrence]string{
	store.RecurrenceOneTime:   "once",
	store.RecurrenceDaily:     "daily",
	store.RecurrenceLimited:   "limited",
	store.RecurrenceUnlimited: "unlimited",
}

type tasksModel struct {
	svc    *service.Services
	width  int
	height int

	progress []tasks.Progress
	cursor   int

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit"
	editingID  string

	// Form field pointers (survive value copies)
	formName       *string
	formReward     *string
	formRecurring  *string
	formRecurrence *string
	formMax        *string
	formMandatory  *bool
}

func newTasksModel(svc *service.Services) tasksModel {
	name, reward, recurring, rec, maxPerDay := "", "", "", string(store.RecurrenceDaily), ""
	mandatory := false
	return tasksModel{
		svc:            svc,
		formName:       &name,
		formReward:     &reward,
		formRecurring:  &recurring,
		formRecurrence: &rec,
		formMax:        &maxPerDay,
		formMandatory:  &mandatory,
	}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type tasksDataMsg struct {
	progress []tasks.Progress
}

func (t tasksModel) refresh() tea.Cmd {
	return func() tea.Msg {
		progress, err := t.svc.Tasks.TodayProgress(t.svc.Calendar.Today())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load tasks: %v", err), isError: true}
		}
		return tasksDataMsg{progress: progress}
	}
}

func (t tasksModel) selected() (tasks.Progress, bool) {
	if t.cursor < 0 || t.cursor >= len(t.progress) {
		return tasks.Progress{}, false
	}
	return t.progress[t.cursor], true
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		t.progress = msg.progress
		if t.cursor >= len(t.progress) {
			t.cursor = max(0, len(t.progress)-1)
		}
		return t, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.progress)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.Complete):
			if p, ok := t.selected(); ok {
				return t, t.complete(p.Task, false)
			}
		case key.Matches(msg, keys.Skip):
			if p, ok := t.selected(); ok {
				return t, t.complete(p.Task, true)
			}
		case key.Matches(msg, keys.New):
			return t.showForm(nil)
		case key.Matches(msg, keys.Enter):
			if p, ok := t.selected(); ok {
				return t.showForm(&p.Task)
			}
		case key.Matches(msg, keys.Delete):
			if p, ok := t.selected(); ok {
				return t, t.archive(p.Task)
			}
		}
	}
	return t, nil
}

func (t tasksModel) complete(def store.TaskDefinition, skipped bool) tea.Cmd {
	return func() tea.Msg {
		exec, err := t.svc.Tasks.CompleteTask(def.ID, skipped)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("%s: %v", def.Name, err), isError: true}
		}
		if skipped {
			return actionDoneMsg{text: "Skipped " + def.Name}
		}
		return actionDoneMsg{text: fmt.Sprintf("Completed %s (+%s)", def.Name, formatCoins(int64(exec.CoinsAwarded)))}
	}
}

func (t tasksModel) archive(def store.TaskDefinition) tea.Cmd {
	return func() tea.Msg {
		if err := t.svc.Tasks.ArchiveTask(def.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Archive %s: %v", def.Name, err), isError: true}
		}
		return actionDoneMsg{text: "Archived " + def.Name}
	}
}

func (t tasksModel) showForm(def *store.TaskDefinition) (tasksModel, tea.Cmd) {
	*t.formName = ""
	*t.formReward = "10"
	*t.formRecurring = ""
	*t.formRecurrence = string(store.RecurrenceDaily)
	*t.formMax = ""
	*t.formMandatory = false
	t.formType = "new"
	t.editingID = ""

	if def != nil {
		*t.formName = def.Name
		*t.formReward = strconv.Itoa(def.RewardCoins)
		if def.RecurringRewardCoins != nil {
			*t.formRecurring = strconv.Itoa(*def.RecurringRewardCoins)
		}
		*t.formRecurrence = string(def.Recurrence)
		if def.MaxExecutionsPerDay != nil {
			*t.formMax = strconv.Itoa(*def.MaxExecutionsPerDay)
		}
		*t.formMandatory = def.Mandatory
		t.formType = "edit"
		t.editingID = def.ID
	}

	recOptions := []huh.Option[string]{
		huh.NewOption("Daily", string(store.RecurrenceDaily)),
		huh.NewOption("Once", string(store.RecurrenceOneTime)),
		huh.NewOption("Limited per day", string(store.RecurrenceLimited)),
		huh.NewOption("Unlimited per day", string(store.RecurrenceUnlimited)),
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task Name").Value(t.formName).Validate(required),
			huh.NewInput().Title("Reward (coins)").Value(t.formReward).Validate(nonNegativeInt),
			huh.NewInput().Title("Reward for repeats (blank = same)").Value(t.formRecurring).Validate(optionalInt),
			huh.NewSelect[string]().Title("Recurrence").Options(recOptions...).Value(t.formRecurrence),
			huh.NewInput().Title("Max per day (limited only)").Value(t.formMax).Validate(optionalInt),
			huh.NewConfirm().Title("Mandatory?").Value(t.formMandatory),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		return t, t.saveForm()
	}

	return t, cmd
}

// formDefinition builds a definition from the form fields. Inputs were
// validated by the form.
func (t tasksModel) formDefinition() store.TaskDefinition {
	reward, _ := strconv.Atoi(strings.TrimSpace(*t.formReward))
	return store.TaskDefinition{
		ID:                   t.editingID,
		Name:                 strings.TrimSpace(*t.formName),
		Mandatory:            *t.formMandatory,
		RewardCoins:          reward,
		RecurringRewardCoins: parseOptionalInt(*t.formRecurring),
		Recurrence:           store.Recurrence(*t.formRecurrence),
		MaxExecutionsPerDay:  parseOptionalInt(*t.formMax),
	}
}

func (t tasksModel) saveForm() tea.Cmd {
	def := t.formDefinition()
	editing := t.formType == "edit"
	return func() tea.Msg {
		if editing {
			if err := t.svc.Tasks.UpdateTask(def); err != nil {
				return statusMsg{text: fmt.Sprintf("Update task: %v", err), isError: true}
			}
			return actionDoneMsg{text: "Updated " + def.Name}
		}
		if _, err := t.svc.Tasks.CreateTask(def); err != nil {
			return statusMsg{text: fmt.Sprintf("Create task: %v", err), isError: true}
		}
		return actionDoneMsg{text: "Created " + def.Name}
	}
}

func (t tasksModel) view() string {
	if t.formActive && t.form != nil {
		title := titleStyle.Render("New Task")
		if t.formType == "edit" {
			title = titleStyle.Render("Edit Task")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View())
		return panelStyle.Width(t.width - 4).Render(content)
	}

	w := t.width - 4
	title := titleStyle.Render("Tasks")

	if len(t.progress) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s %8s  %s", "", "Name", "Repeats", "Reward", "Today"))
	rows = append(rows, header)

	for i, p := range t.progress {
		cursor := "  "
		style := normalItemStyle
		if i == t.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		flag := " "
		if p.Task.Mandatory {
			flag = "!"
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s %-10s %8d", cursor, flag, p.Task.Name,
			recurrenceLabels[p.Task.Recurrence], p.Task.RewardCoins))
		rows = append(rows, row+"  "+renderProgress(p))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  c: complete  s: skip  n: new  enter: edit  d: archive   ! = mandatory"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderProgress(p tasks.Progress) string {
	limit := tasks.Cap(p.Task)
	var text string
	if limit < 0 {
		text = fmt.Sprintf("%d done", p.Done)
	} else {
		text = fmt.Sprintf("%d/%d", p.Done, limit)
	}
	if p.Skipped > 0 {
		text += fmt.Sprintf(" (%d skipped)", p.Skipped)
	}
	switch {
	case p.CapReached:
		return successStyle.Render("✓ " + text)
	case p.Done > 0 || p.Skipped > 0:
		return highlightStyle.Render(text)
	}
	return mutedStyle.Render(text)
}

// --- Form validation ---

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number ≥ 0")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a whole number > 0")
	}
	return nil
}

func optionalInt(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return nonNegativeInt(s)
}

func parseOptionalInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
