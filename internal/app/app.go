package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskapi/internal/credential"
	"github.com/nhle/taskapi/internal/keys"
	"github.com/nhle/taskapi/internal/model"
	tasksync "github.com/nhle/taskapi/internal/sync"
	"github.com/nhle/taskapi/internal/ui"
	"github.com/nhle/taskapi/internal/ui/command"
	"github.com/nhle/taskapi/internal/ui/confirm"
	helpview "github.com/nhle/taskapi/internal/ui/help"
	"github.com/nhle/taskapi/internal/ui/login"
	"github.com/nhle/taskapi/internal/ui/taskform"
	"github.com/nhle/taskapi/internal/ui/tasklist"
)

// TaskClient is the subset of client.Client the UI drives.
type TaskClient interface {
	ListTasks(ctx context.Context, filter string) ([]model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ReorderTasks(ctx context.Context, tasks []model.Task) error
	Ping(ctx context.Context) error
}

// Credentials remembers logins between runs. credential.Store satisfies it.
type Credentials interface {
	Load(serverURL string) (credential.Login, error)
	Save(serverURL string, l credential.Login) error
	Delete(serverURL string) error
}

// Dialer returns a client that authenticates as username.
type Dialer func(username, password string) TaskClient

// Options configures the root model.
type Options struct {
	ServerURL string
	// Username pre-fills the login form.
	Username string
	Dial     Dialer
	// Credentials may be nil, in which case nothing is remembered.
	Credentials Credentials
	// RefreshInterval enables background polling of the list when positive.
	RefreshInterval time.Duration
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewTaskCreate
	ViewTaskEdit
	ViewConfirmDelete
	ViewHelp
	ViewCommand
)

// Model is the root Bubble Tea model that manages view routing, layout and
// the session with the task server.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	opts         Options
	client       TaskClient
	poller       *tasksync.Poller
	username     string
	taskList     tasklist.Model
	taskForm     taskform.Model
	loginForm    login.Model
	confirmView  confirm.Model
	helpView     helpview.Model
	commandView  command.Model
	ready        bool
	loggingIn    bool
	errMsg       string
	notice       string
}

// New creates the root model. No request is made until Init.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewLogin,
		keys:        k,
		opts:        opts,
		username:    opts.Username,
		taskList:    tasklist.New(80, 22),
		taskForm:    taskform.New(80, 22),
		loginForm:   login.New(opts.ServerURL, 80),
		confirmView: confirm.New(80),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80),
		loggingIn:   true,
	}
}

// CurrentView reports the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Err returns the message shown in the status bar, if any.
func (m Model) Err() string { return m.errMsg }

// Tasks returns the tasks currently listed.
func (m Model) Tasks() []model.Task { return m.taskList.Tasks() }

// Init restores a remembered session or asks for credentials.
func (m Model) Init() tea.Cmd {
	return m.restoreSession()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.loginForm.SetSize(w, h)
		m.confirmView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case showLoginMsg:
		return m, m.showLogin(msg.username, "")

	case login.SubmittedMsg:
		m.loggingIn = true
		m.errMsg = ""
		return m, m.attemptLogin(msg.Username, msg.Password, msg.Remember, false)

	case login.CancelMsg:
		return m, tea.Quit

	case loginResultMsg:
		return m.handleLogin(msg)

	case tasksLoadedMsg:
		if msg.filter != m.taskList.Filter() {
			return m, nil
		}
		if msg.err != nil {
			return m, m.handleError(msg.err)
		}
		return m, m.taskList.SetTasks(msg.tasks, msg.selectID)

	case tasksync.ResultMsg:
		return m.handlePoll(msg)

	case taskform.TaskCreatedMsg:
		m.currentView = ViewList
		return m, m.createTask(msg.Task)

	case taskform.TaskUpdatedMsg:
		m.currentView = ViewList
		return m, m.updateTask(msg.Task)

	case taskform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case confirm.ResultMsg:
		m.currentView = ViewList
		if !msg.Confirmed {
			return m, nil
		}
		return m, m.deleteTask(msg.Task.ID)

	case taskChangedMsg:
		if msg.err != nil {
			return m, m.handleError(msg.err)
		}
		m.errMsg = ""
		m.notice = msg.notice
		return m, m.loadTasks(msg.selectID)

	case loggedOutMsg:
		m.stopPolling()
		m.client = nil
		m.taskList.SetTasks(nil, 0)
		if msg.err != nil {
			return m, m.showLogin("", fmt.Sprintf("logged out, but forgetting credentials failed: %v", msg.err))
		}
		return m, m.showLogin("", "")

	case command.CommandMsg:
		m.currentView = ViewList
		m.commandView.Blur()
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleKey processes global and list-view keys. handled is false when the
// key belongs to the active sub-view.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch m.currentView {
	case ViewHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back, m.keys.Quit) {
			m.currentView = m.previousView
		}
		return nil, true

	case ViewCommand:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = ViewList
			m.commandView.Blur()
			return nil, true
		}
		return nil, false

	case ViewList:
	default:
		return nil, false
	}

	// List view.
	if m.loggingIn {
		return nil, true
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Refresh):
		m.errMsg = ""
		return m.loadTasks(0), true

	case key.Matches(msg, m.keys.CycleFilter):
		m.taskList.CycleFilter()
		return m.loadTasks(0), true

	case key.Matches(msg, m.keys.New):
		m.currentView = ViewTaskCreate
		return m.taskForm.StartCreate(), true

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.taskList.SelectedTask()
		if !ok {
			return nil, true
		}
		m.currentView = ViewTaskEdit
		return m.taskForm.StartEdit(t), true

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.taskList.SelectedTask()
		if !ok {
			return nil, true
		}
		t.IsCompleted = !t.IsCompleted
		return m.updateTask(t), true

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.taskList.SelectedTask()
		if !ok {
			return nil, true
		}
		m.currentView = ViewConfirmDelete
		return m.confirmView.StartDelete(t), true

	case key.Matches(msg, m.keys.MoveUp):
		return m.move(-1), true

	case key.Matches(msg, m.keys.MoveDown):
		return m.move(1), true

	case key.Matches(msg, m.keys.Logout):
		return m.logout(), true
	}

	return nil, false
}

func (m *Model) move(delta int) tea.Cmd {
	sel, ok := m.taskList.SelectedTask()
	if !ok {
		return nil
	}
	tasks, ok := m.taskList.Move(delta)
	if !ok {
		return nil
	}
	return m.reorder(tasks, sel.ID)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginForm, cmd = m.loginForm.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewConfirmDelete:
		m.confirmView, cmd = m.confirmView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerInfo())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.errMsg)
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	if m.client == nil {
		return "taskctl"
	}
	return "taskctl | " + m.session()
}

func (m Model) headerInfo() string {
	if m.client == nil {
		return m.opts.ServerURL
	}
	return fmt.Sprintf("%s | %d tasks", tasklist.FilterLabel(m.taskList.Filter()), len(m.taskList.Tasks()))
}

func (m Model) session() string {
	return m.username + "@" + m.opts.ServerURL
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		if m.loggingIn {
			return "Signing in..."
		}
		return m.loginForm.View()
	case ViewList:
		return m.taskList.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	case ViewConfirmDelete:
		return m.confirmView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter next | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	case ViewConfirmDelete:
		return "←/→ choose | enter confirm | esc cancel"
	default:
		if m.notice != "" {
			return m.notice
		}
		return "q quit | ? help | n new | e edit | x done | d delete | J/K move | f filter"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh":
		return m.loadTasks(0)
	case "new":
		m.currentView = ViewTaskCreate
		return m.taskForm.StartCreate()
	case "filter all", "all":
		m.taskList.SetFilter("")
		return m.loadTasks(0)
	case "filter completed", "completed":
		m.taskList.SetFilter(model.FilterCompleted)
		return m.loadTasks(0)
	case "filter incomplete", "incomplete":
		m.taskList.SetFilter(model.FilterIncomplete)
		return m.loadTasks(0)
	case "logout":
		return m.logout()
	case "quit", "q":
		return tea.Quit
	default:
		m.errMsg = fmt.Sprintf("unknown command %q", cmd)
		return nil
	}
}

// handlePoll applies a background refresh. Results for a filter the user
// has since left are dropped.
func (m Model) handlePoll(msg tasksync.ResultMsg) (tea.Model, tea.Cmd) {
	if m.poller == nil {
		return m, nil
	}
	wait := m.poller.WaitForNextResult()
	if msg.Filter != m.taskList.Filter() {
		return m, wait
	}
	if msg.Error != nil {
		return m, tea.Batch(m.handleError(msg.Error), wait)
	}

	var selectID int64
	if t, ok := m.taskList.SelectedTask(); ok {
		selectID = t.ID
	}
	if msg.NewCount > 0 {
		m.notice = fmt.Sprintf("%d new task(s) from elsewhere", msg.NewCount)
	}
	return m, tea.Batch(m.taskList.SetTasks(msg.Tasks, selectID), wait)
}

func (m *Model) stopPolling() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
}
