package tasklist

import (
	"sort"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/theme"
)

// Filters is the cycle order of the status filter.
var Filters = []string{"", model.FilterCompleted, model.FilterIncomplete}

// FilterLabel names a filter for display.
func FilterLabel(filter string) string {
	if filter == "" {
		return "all"
	}
	return filter
}

// Model is the task list view. It holds no client; the app loads tasks and
// hands them over with SetTasks.
type Model struct {
	list        list.Model
	filterIndex int
	loaded      bool
	width       int
	height      int
}

// New creates a new task list model.
func New(width, height int) Model {
	l := list.New([]list.Item{}, TaskDelegate{}, width, height)
	l.Title = "Tasks"
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		width:  width,
		height: height,
	}
}

// SetTasks replaces the list content and keeps the cursor on selectID when it
// is still present.
func (m *Model) SetTasks(tasks []model.Task, selectID int64) tea.Cmd {
	items := make([]list.Item, len(tasks))
	idx := m.list.Index()
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
		if selectID != 0 && t.ID == selectID {
			idx = i
		}
	}
	m.loaded = true
	cmd := m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	return cmd
}

// Tasks returns the tasks in display order.
func (m Model) Tasks() []model.Task {
	items := m.list.Items()
	tasks := make([]model.Task, 0, len(items))
	for _, it := range items {
		if ti, ok := it.(TaskItem); ok {
			tasks = append(tasks, ti.Task)
		}
	}
	return tasks
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	ti, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return ti.Task, true
}

func (m Model) Index() int { return m.list.Index() }

// Filter returns the active status filter value for the API.
func (m Model) Filter() string {
	return Filters[m.filterIndex]
}

// CycleFilter advances all → completed → incomplete → all.
func (m *Model) CycleFilter() string {
	m.filterIndex = (m.filterIndex + 1) % len(Filters)
	return m.Filter()
}

// SetFilter selects filter by value. Unknown values select "all".
func (m *Model) SetFilter(filter string) {
	m.filterIndex = 0
	for i, f := range Filters {
		if f == filter {
			m.filterIndex = i
		}
	}
}

// Move returns the visible tasks with the selected one shifted by delta and
// positions rewritten, ready for a reorder request. ok is false when the
// move would leave the list.
func (m Model) Move(delta int) (tasks []model.Task, ok bool) {
	return Reorder(m.Tasks(), m.list.Index(), delta, m.Filter() == "")
}

// Reorder moves tasks[from] to from+delta and assigns positions. With dense
// set, or when the current positions contain duplicates, positions become
// 1..n. Otherwise the existing position values are reused in the new order
// so tasks hidden by a filter keep their relative place.
func Reorder(tasks []model.Task, from, delta int, dense bool) ([]model.Task, bool) {
	to := from + delta
	if from < 0 || from >= len(tasks) || to < 0 || to >= len(tasks) || delta == 0 {
		return nil, false
	}

	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved

	slots := make([]int64, len(tasks))
	for i, t := range tasks {
		slots[i] = t.Position
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	if dense || hasDuplicates(slots) {
		for i := range slots {
			slots[i] = int64(i + 1)
		}
	}

	for i := range out {
		out[i].Position = slots[i]
	}
	return out, true
}

func hasDuplicates(sorted []int64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}

// Update forwards navigation to the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.loaded:
		return style.Render("Loading tasks...")
	case m.Filter() != "":
		return style.Render("No " + m.Filter() + " tasks.\nPress f to change the filter.")
	default:
		return style.Render("No tasks yet.\n\nPress n to add one.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
