// Package confirm asks for a yes/no answer before a destructive action.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/model"
)

// ResultMsg reports the answer for the task the prompt was started with.
type ResultMsg struct {
	Task      model.Task
	Confirmed bool
}

type Model struct {
	form   *huh.Form
	answer *bool
	task   model.Task
	width  int
}

func New(width int) Model {
	return Model{answer: new(bool), width: width}
}

// StartDelete asks whether t should be deleted. The default answer is no.
func (m *Model) StartDelete(t model.Task) tea.Cmd {
	m.task = t
	*m.answer = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete task?").
				Description(t.Title).
				Affirmative("Delete").
				Negative("Cancel").
				Value(m.answer),
		),
	).WithWidth(max(m.width-4, 30))
	return m.form.Init()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted, huh.StateAborted:
		res := ResultMsg{Task: m.task, Confirmed: m.form.State == huh.StateCompleted && *m.answer}
		m.form = nil
		return m, func() tea.Msg { return res }
	}
	return m, cmd
}

func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

func (m *Model) SetSize(width, _ int) {
	m.width = width
}
