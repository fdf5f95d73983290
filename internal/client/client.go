// Package client is a typed HTTP client for the task API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/taskapi/internal/model"
)

// ErrUnauthorized is returned when the server rejects the credentials.
var ErrUnauthorized = errors.New("invalid username or password")

// APIError is a non-2xx response that has no sentinel mapping.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Client talks to a taskapi server with HTTP Basic credentials. Requests
// answered with 429 are retried with backoff.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	maxRetries int
}

// New returns a Client for the server at baseURL.
func New(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxRetries: 3,
	}
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Username returns the user the client authenticates as.
func (c *Client) Username() string { return c.username }

// ListTasks returns tasks in display order. filter is "", "completed" or
// "incomplete".
func (c *Client) ListTasks(ctx context.Context, filter string) ([]model.Task, error) {
	path := "/tasks"
	if filter != "" {
		path += "?status=" + url.QueryEscape(filter)
	}
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask stores a new task and returns it with server-assigned fields.
func (c *Client) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	var created model.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", t, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask replaces t on the server. A non-zero t.Version makes the write
// conditional; a stale version yields model.ErrConflict.
func (c *Client) UpdateTask(ctx context.Context, t model.Task) error {
	return c.do(ctx, http.MethodPut, taskPath(t.ID), t, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// ReorderTasks sends the positions carried by tasks as one batch.
func (c *Client) ReorderTasks(ctx context.Context, tasks []model.Task) error {
	return c.do(ctx, http.MethodPost, "/tasks/reorder", tasks, nil)
}

// Ping checks that the server is reachable and accepts the credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/tasks?status=completed", nil, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Accept", "application/json")
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			if attempt == c.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, method, path, respBody)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// statusError maps a failed response onto the shared sentinel errors so
// callers can use errors.Is the same way they would against the service.
func statusError(status int, method, path string, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, model.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, model.ErrConflict)
	case http.StatusBadRequest:
		msg = strings.TrimPrefix(msg, model.ErrValidation.Error()+": ")
		return fmt.Errorf("%w: %s", model.ErrValidation, msg)
	}
	return &APIError{StatusCode: status, Method: method, Path: path, Message: msg}
}

// maxRetryWait caps every wait between rate-limited attempts.
const maxRetryWait = 10 * time.Second

// retryAfterDuration reads Retry-After, falling back to exponential backoff.
// Either way the wait is at most maxRetryWait.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			if seconds >= int(maxRetryWait/time.Second) {
				return maxRetryWait
			}
			return time.Duration(seconds) * time.Second
		}
	}

	return min(time.Duration(1<<uint(attempt))*time.Second, maxRetryWait)
}
