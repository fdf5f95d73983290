// Package login is the credential prompt shown before the task list.
package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/theme"
)

// SubmittedMsg carries the credentials the user entered.
type SubmittedMsg struct {
	Username string
	Password string
	Remember bool
}

// CancelMsg is sent when the user aborts the prompt.
type CancelMsg struct{}

type formBindings struct {
	username string
	password string
	remember bool
}

// Model is the login form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	serverURL string
	width     int
}

func New(serverURL string, width int) Model {
	return Model{
		fb:        &formBindings{remember: true},
		serverURL: serverURL,
		width:     width,
	}
}

// Start (re)builds the form with username pre-filled.
func (m *Model) Start(username string) tea.Cmd {
	m.fb.username = username
	m.fb.password = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(required("password")),
			huh.NewConfirm().
				Title("Remember on this machine?").
				Value(&m.fb.remember),
		),
	).WithWidth(m.formWidth())

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
	case huh.StateCompleted:
		m.form = nil
		sub := SubmittedMsg{
			Username: strings.TrimSpace(m.fb.username),
			Password: m.fb.password,
			Remember: m.fb.remember,
		}
		return m, func() tea.Msg { return sub }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := theme.TitleStyle.Render("Sign in to " + m.serverURL)
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}

func (m *Model) SetSize(width, _ int) {
	m.width = width
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return w
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
