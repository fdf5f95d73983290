package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskapi/internal/client"
	"github.com/nhle/taskapi/internal/credential"
	"github.com/nhle/taskapi/internal/model"
	tasksync "github.com/nhle/taskapi/internal/sync"
	"github.com/nhle/taskapi/internal/ui/confirm"
	"github.com/nhle/taskapi/internal/ui/login"
	"github.com/nhle/taskapi/internal/ui/taskform"
)

const serverURL = "http://tasks.test"

// fakeClient keeps tasks in memory and records the last write.
type fakeClient struct {
	mu        sync.Mutex
	password  string
	tasks     []model.Task
	nextID    int64
	reordered []model.Task
	updateErr error
	listErr   error
}

func newFakeClient(titles ...string) *fakeClient {
	f := &fakeClient{password: "pw"}
	for _, title := range titles {
		f.nextID++
		f.tasks = append(f.tasks, model.Task{ID: f.nextID, Title: title, Position: f.nextID, Version: 1})
	}
	return f
}

func (f *fakeClient) dial(_, password string) TaskClient {
	return &authedClient{fake: f, ok: password == f.password}
}

type authedClient struct {
	fake *fakeClient
	ok   bool
}

func (c *authedClient) check() error {
	if !c.ok {
		return client.ErrUnauthorized
	}
	return nil
}

func (c *authedClient) Ping(context.Context) error { return c.check() }

func (c *authedClient) ListTasks(_ context.Context, filter string) ([]model.Task, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	f := c.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	sf := model.ParseStatusFilter(filter)
	var out []model.Task
	for _, t := range f.tasks {
		if sf.Completed != nil && t.IsCompleted != *sf.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *authedClient) CreateTask(_ context.Context, t model.Task) (*model.Task, error) {
	f := c.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID, t.Position, t.Version = f.nextID, f.nextID, 1
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (c *authedClient) UpdateTask(_ context.Context, t model.Task) error {
	f := c.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == t.ID {
			t.Version = f.tasks[i].Version + 1
			f.tasks[i] = t
			return nil
		}
	}
	return fmt.Errorf("PUT /tasks/%d: %w", t.ID, model.ErrNotFound)
}

func (c *authedClient) DeleteTask(_ context.Context, id int64) error {
	f := c.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (c *authedClient) ReorderTasks(_ context.Context, tasks []model.Task) error {
	f := c.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reordered = tasks
	byID := map[int64]int64{}
	for _, t := range tasks {
		byID[t.ID] = t.Position
	}
	for i := range f.tasks {
		if p, ok := byID[f.tasks[i].ID]; ok {
			f.tasks[i].Position = p
		}
	}
	// keep display order by position
	for i := 1; i < len(f.tasks); i++ {
		for j := i; j > 0 && f.tasks[j].Position < f.tasks[j-1].Position; j-- {
			f.tasks[j], f.tasks[j-1] = f.tasks[j-1], f.tasks[j]
		}
	}
	return nil
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step feeds msg to m and, when the returned command is one of the app's
// own requests, runs it and feeds the result back as well.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		switch out.(type) {
		case tasksLoadedMsg, taskChangedMsg, loginResultMsg, showLoginMsg, loggedOutMsg:
			next, cmd = m.Update(out)
			m = next.(Model)
		default:
			return m
		}
	}
	return m
}

func newCreds(t *testing.T, stored bool) *credential.Store {
	t.Helper()
	s := credential.NewStore(keyring.NewArrayKeyring(nil))
	if stored {
		require.NoError(t, s.Save(serverURL, credential.Login{Username: "ann", Password: "pw"}))
	}
	return s
}

func start(t *testing.T, fake *fakeClient, creds Credentials) Model {
	t.Helper()
	m := New(Options{ServerURL: serverURL, Dial: fake.dial, Credentials: creds})
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	out := m.Init()()
	return step(t, m, out)
}

func loggedIn(t *testing.T, fake *fakeClient) Model {
	t.Helper()
	m := start(t, fake, newCreds(t, true))
	require.Equal(t, ViewList, m.CurrentView())
	return m
}

func titles(m Model) []string {
	var out []string
	for _, t := range m.Tasks() {
		out = append(out, t.Title)
	}
	return out
}

func TestInit_NoStoredCredentialsShowsLogin(t *testing.T) {
	m := start(t, newFakeClient(), newCreds(t, false))
	assert.Equal(t, ViewLogin, m.CurrentView())
	assert.Empty(t, m.Err())
}

func TestInit_RestoresSession(t *testing.T) {
	m := loggedIn(t, newFakeClient("A", "B"))
	assert.Equal(t, []string{"A", "B"}, titles(m))
}

func TestInit_RejectedStoredCredentialsAreForgotten(t *testing.T) {
	fake := newFakeClient()
	fake.password = "changed"
	creds := newCreds(t, true)

	m := start(t, fake, creds)
	assert.Equal(t, ViewLogin, m.CurrentView())
	assert.Contains(t, m.Err(), "remembered credentials were rejected")

	_, err := creds.Load(serverURL)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestLogin_SubmitRemembers(t *testing.T) {
	fake := newFakeClient("A")
	creds := newCreds(t, false)
	m := start(t, fake, creds)

	m = step(t, m, login.SubmittedMsg{Username: "ann", Password: "nope", Remember: true})
	assert.Equal(t, ViewLogin, m.CurrentView())
	assert.Equal(t, client.ErrUnauthorized.Error(), m.Err())

	m = step(t, m, login.SubmittedMsg{Username: "ann", Password: "pw", Remember: true})
	require.Equal(t, ViewList, m.CurrentView())
	assert.Equal(t, []string{"A"}, titles(m))

	l, err := creds.Load(serverURL)
	require.NoError(t, err)
	assert.Equal(t, "ann", l.Username)
}

func TestCreateAndEdit(t *testing.T) {
	fake := newFakeClient("A")
	m := loggedIn(t, fake)

	m = step(t, m, press("n"))
	assert.Equal(t, ViewTaskCreate, m.CurrentView())

	m = step(t, m, taskform.TaskCreatedMsg{Task: model.Task{Title: "B"}})
	assert.Equal(t, ViewList, m.CurrentView())
	assert.Equal(t, []string{"A", "B"}, titles(m))

	sel, ok := m.taskList.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "B", sel.Title, "cursor follows the new task")

	m = step(t, m, press("e"))
	assert.Equal(t, ViewTaskEdit, m.CurrentView())
	sel.Title = "B2"
	m = step(t, m, taskform.TaskUpdatedMsg{Task: sel})
	assert.Equal(t, []string{"A", "B2"}, titles(m))
}

func TestToggleComplete(t *testing.T) {
	fake := newFakeClient("A")
	m := loggedIn(t, fake)

	m = step(t, m, press("x"))
	require.Len(t, m.Tasks(), 1)
	assert.True(t, m.Tasks()[0].IsCompleted)
	assert.Equal(t, int64(2), m.Tasks()[0].Version)
}

func TestToggleConflictReloads(t *testing.T) {
	fake := newFakeClient("A")
	m := loggedIn(t, fake)
	fake.updateErr = fmt.Errorf("PUT /tasks/1: %w", model.ErrConflict)

	m = step(t, m, press("x"))
	assert.Contains(t, m.Err(), "changed elsewhere")
	assert.False(t, m.Tasks()[0].IsCompleted)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	fake := newFakeClient("A", "B")
	m := loggedIn(t, fake)

	m = step(t, m, press("d"))
	require.Equal(t, ViewConfirmDelete, m.CurrentView())

	m = step(t, m, confirm.ResultMsg{Task: m.Tasks()[0], Confirmed: false})
	assert.Equal(t, ViewList, m.CurrentView())
	assert.Len(t, m.Tasks(), 2)

	m = step(t, m, press("d"))
	m = step(t, m, confirm.ResultMsg{Task: m.Tasks()[0], Confirmed: true})
	assert.Equal(t, []string{"B"}, titles(m))
}

func TestMoveDownSendsDensePositions(t *testing.T) {
	fake := newFakeClient("A", "B", "C")
	m := loggedIn(t, fake)

	m = step(t, m, press("J"))
	require.Len(t, fake.reordered, 3)
	assert.Equal(t, []string{"B", "A", "C"}, titles(m))
	for i, task := range fake.reordered {
		assert.Equal(t, int64(i+1), task.Position)
	}

	sel, ok := m.taskList.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "A", sel.Title)

	m = step(t, m, press("K"))
	assert.Equal(t, []string{"A", "B", "C"}, titles(m))

	fake.reordered = nil
	m = step(t, m, press("K"))
	assert.Equal(t, []string{"A", "B", "C"}, titles(m))
	assert.Nil(t, fake.reordered, "moving past the top sends nothing")
}

func TestFilterCycle(t *testing.T) {
	fake := newFakeClient("A", "B")
	fake.tasks[0].IsCompleted = true
	m := loggedIn(t, fake)

	m = step(t, m, press("f"))
	assert.Equal(t, []string{"A"}, titles(m))
	m = step(t, m, press("f"))
	assert.Equal(t, []string{"B"}, titles(m))
	m = step(t, m, press("f"))
	assert.Equal(t, []string{"A", "B"}, titles(m))
}

func TestStaleFilterResponseDropped(t *testing.T) {
	m := loggedIn(t, newFakeClient("A"))

	next, _ := m.Update(tasksLoadedMsg{filter: model.FilterCompleted, tasks: []model.Task{{ID: 9, Title: "Z"}}})
	m = next.(Model)
	assert.Equal(t, []string{"A"}, titles(m))
}

func TestListErrorShownInStatusBar(t *testing.T) {
	fake := newFakeClient("A")
	m := loggedIn(t, fake)
	fake.listErr = errors.New("connection refused")

	m = step(t, m, press("r"))
	assert.Equal(t, "connection refused", m.Err())
	assert.Equal(t, ViewList, m.CurrentView())
}

func TestLogout(t *testing.T) {
	creds := newCreds(t, true)
	m := start(t, newFakeClient("A"), creds)
	require.Equal(t, ViewList, m.CurrentView())

	m = step(t, m, press("L"))
	assert.Equal(t, ViewLogin, m.CurrentView())
	assert.Empty(t, m.Tasks())

	_, err := creds.Load(serverURL)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestUnknownCommand(t *testing.T) {
	m := loggedIn(t, newFakeClient())
	cmd := m.executeCommand("dance")
	assert.Nil(t, cmd)
	assert.Equal(t, `unknown command "dance"`, m.Err())
}

func TestView(t *testing.T) {
	m := loggedIn(t, newFakeClient("Buy milk"))
	out := m.View()
	assert.Contains(t, out, "ann@"+serverURL)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "all | 1 tasks")
}

func TestBackgroundRefresh(t *testing.T) {
	fake := newFakeClient("A", "B")
	m := loggedIn(t, fake)
	m.poller = tasksync.New(fake.dial("ann", "pw").ListTasks, time.Hour)
	defer m.poller.Stop()

	m = step(t, m, press("j"))
	sel, _ := m.taskList.SelectedTask()
	require.Equal(t, "B", sel.Title)

	next, cmd := m.Update(tasksync.ResultMsg{
		Tasks:    []model.Task{{ID: 3, Title: "C"}, {ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		NewCount: 1,
	})
	m = next.(Model)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, []string{"C", "A", "B"}, titles(m))
	assert.Equal(t, "1 new task(s) from elsewhere", m.notice)
	sel, _ = m.taskList.SelectedTask()
	assert.Equal(t, "B", sel.Title, "selection follows the task, not the row")

	next, _ = m.Update(tasksync.ResultMsg{Filter: model.FilterCompleted})
	m = next.(Model)
	assert.Len(t, m.Tasks(), 3, "result for another filter is dropped")
}
