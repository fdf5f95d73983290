package taskform

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/theme"
)

// TaskCreatedMsg is dispatched when a new task is submitted via the form.
type TaskCreatedMsg struct {
	Task model.Task
}

// TaskUpdatedMsg is dispatched when an existing task is submitted via the
// form. Task carries the version it was loaded with.
type TaskUpdatedMsg struct {
	Task model.Task
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	completed   bool
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	original model.Task
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	*m.fb = formBindings{}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with t's current values.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.original = t
	*m.fb = formBindings{
		title:       t.Title,
		description: t.DescriptionText(),
		completed:   t.IsCompleted,
	}
	m.form = m.buildForm()
	return m.form.Init()
}

func (m Model) Editing() bool { return m.editMode }

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.handleSubmit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	content := theme.TitleStyle.Render(titleText) + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			CharLimit(model.MaxTitleLength).
			Value(&m.fb.title).
			Validate(validateTitle),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
	}
	if m.editMode {
		fields = append(fields,
			huh.NewConfirm().
				Title("Completed").
				Affirmative("Done").
				Negative("Open").
				Value(&m.fb.completed),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// Task builds the task described by the current form values.
func (m Model) Task() model.Task {
	t := m.original
	t.Title = strings.TrimSpace(m.fb.title)
	t.Description = nil
	if d := strings.TrimSpace(m.fb.description); d != "" {
		t.Description = &d
	}
	t.IsCompleted = m.fb.completed
	return t
}

func (m Model) handleSubmit() tea.Cmd {
	t := m.Task()
	if m.editMode {
		return func() tea.Msg { return TaskUpdatedMsg{Task: t} }
	}
	return func() tea.Msg { return TaskCreatedMsg{Task: t} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// validateTitle applies the server's title rule so most rejections never
// leave the terminal.
func validateTitle(s string) error {
	err := model.ValidateTitle(s)
	if err == nil {
		return nil
	}
	return errors.New(strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": "))
}
