package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/theme"
)

// Layout manages the header / content / status bar split of the terminal.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight is what remains after the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders title on the left and info on the right.
func (l Layout) RenderHeader(title, info string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	infoRendered := theme.HeaderStyle.Align(lipgloss.Right).Render(info)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		l.fill(theme.HeaderStyle, lipgloss.Width(titleRendered)+lipgloss.Width(infoRendered)),
		infoRendered,
	)
}

// RenderStatusBar renders keyboard hints, or errMsg in the error style when
// it is non-empty.
func (l Layout) RenderStatusBar(hints, errMsg string) string {
	style := theme.StatusBarStyle
	text := hints
	if errMsg != "" {
		style = theme.ErrorBarStyle
		text = errMsg
	}

	rendered := style.Render(text)
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, l.fill(style, lipgloss.Width(rendered)))
}

func (l Layout) fill(style lipgloss.Style, used int) string {
	gap := l.Width - used
	if gap <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().Height(l.ContentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
