package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

func (i TaskItem) FilterValue() string { return i.Task.Title }

func (i TaskItem) Title() string { return i.Task.Title }

func (i TaskItem) Description() string { return i.Task.DescriptionText() }

// TaskDelegate renders one task per line.
type TaskDelegate struct{}

func (d TaskDelegate) Height() int { return 1 }

func (d TaskDelegate) Spacing() int { return 0 }

func (d TaskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d TaskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(ti.Task, index == m.Index(), time.Now()))
}

func renderLine(t model.Task, selected bool, now time.Time) string {
	prefix := "○"
	if t.IsCompleted {
		prefix = "✓"
	}

	title := t.Title
	if t.IsCompleted {
		title = theme.DimmedStyle.Render(title)
	}

	desc := ""
	if d := t.DescriptionText(); d != "" {
		desc = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("  " + truncate(d, 40))
	}

	changed := t.CreatedAt
	if t.UpdatedAt != nil {
		changed = *t.UpdatedAt
	}
	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(now, changed))

	line := fmt.Sprintf("%s %s%s  %s", prefix, title, desc, timeStr)

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
