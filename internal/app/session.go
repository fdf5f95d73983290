package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskapi/internal/client"
	"github.com/nhle/taskapi/internal/credential"
	tasksync "github.com/nhle/taskapi/internal/sync"
)

// showLoginMsg asks the model to display the login form.
type showLoginMsg struct {
	username string
}

// loginResultMsg reports a login attempt. restored is set when the
// credentials came from the keyring rather than the form.
type loginResultMsg struct {
	client   TaskClient
	username string
	restored bool
	saveErr  error
	err      error
}

type loggedOutMsg struct {
	err error
}

// restoreSession tries the remembered login for the server, falling back
// to the form.
func (m Model) restoreSession() tea.Cmd {
	creds, serverURL, username := m.opts.Credentials, m.opts.ServerURL, m.username
	if creds == nil {
		return func() tea.Msg { return showLoginMsg{username: username} }
	}
	return func() tea.Msg {
		l, err := creds.Load(serverURL)
		if err != nil {
			return showLoginMsg{username: username}
		}
		if username != "" && l.Username != username {
			return showLoginMsg{username: username}
		}
		return m.attemptLogin(l.Username, l.Password, false, true)()
	}
}

// attemptLogin checks the credentials against the server and, when asked,
// remembers them.
func (m Model) attemptLogin(username, password string, remember, restored bool) tea.Cmd {
	dial, creds, serverURL := m.opts.Dial, m.opts.Credentials, m.opts.ServerURL
	return func() tea.Msg {
		c := dial(username, password)

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			return loginResultMsg{username: username, restored: restored, err: err}
		}

		res := loginResultMsg{client: c, username: username, restored: restored}
		if remember && creds != nil {
			res.saveErr = creds.Save(serverURL, credential.Login{Username: username, Password: password})
		}
		return res
	}
}

func (m Model) handleLogin(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.username = msg.username
	if msg.err != nil {
		reason := msg.err.Error()
		if msg.restored && errors.Is(msg.err, client.ErrUnauthorized) {
			reason = "remembered credentials were rejected"
			if creds := m.opts.Credentials; creds != nil {
				_ = creds.Delete(m.opts.ServerURL)
			}
		}
		return m, m.showLogin(msg.username, reason)
	}

	m.client = msg.client
	m.loggingIn = false
	m.errMsg = ""
	if msg.saveErr != nil {
		m.errMsg = fmt.Sprintf("signed in, but remembering credentials failed: %v", msg.saveErr)
	}
	m.helpView.SetSession(m.session())
	m.currentView = ViewList

	m.stopPolling()
	if m.opts.RefreshInterval <= 0 {
		return m, m.loadTasks(0)
	}
	m.poller = tasksync.New(msg.client.ListTasks, m.opts.RefreshInterval)
	return m, tea.Batch(m.loadTasks(0), m.poller.Start())
}

func (m *Model) showLogin(username, errMsg string) tea.Cmd {
	m.loggingIn = false
	m.errMsg = errMsg
	m.currentView = ViewLogin
	return m.loginForm.Start(username)
}

// logout forgets the remembered login and returns to the form.
func (m Model) logout() tea.Cmd {
	creds, serverURL := m.opts.Credentials, m.opts.ServerURL
	return func() tea.Msg {
		if creds == nil {
			return loggedOutMsg{}
		}
		return loggedOutMsg{err: creds.Delete(serverURL)}
	}
}
