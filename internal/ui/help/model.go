package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/keys"
	"github.com/nhle/taskapi/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	session string
	width   int
	height  int
}

func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetSession sets the "user@server" line shown under the title.
func (m *Model) SetSession(s string) {
	m.session = s
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	parts := []string{theme.TitleStyle.Render("Keyboard Shortcuts")}
	if m.session != "" {
		parts = append(parts, theme.HelpStyle.Render("Signed in as "+m.session), "")
	}
	parts = append(parts, m.help.View(m.keys))

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
