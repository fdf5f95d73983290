package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/taskapi/internal/auth"
	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/tests/testutil"
)

func newGate(t *testing.T) http.Handler {
	t.Helper()
	s := testutil.NewTestStore(t)

	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	_, err = s.CreateUser(context.Background(), "alice", hash)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, _ := auth.UsernameFromContext(r.Context())
		w.Write([]byte("hello " + name))
	})
	return auth.BasicAuth(s, "Task Management System")(next)
}

func TestBasicAuth(t *testing.T) {
	gate := newGate(t)

	tests := []struct {
		name       string
		setHeader  func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid credentials",
			setHeader:  func(r *http.Request) { r.SetBasicAuth("alice", "s3cret") },
			wantStatus: http.StatusOK,
			wantBody:   "hello alice",
		},
		{
			name:       "no header",
			setHeader:  func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "wrong password",
			setHeader:  func(r *http.Request) { r.SetBasicAuth("alice", "guess") },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "unknown user",
			setHeader:  func(r *http.Request) { r.SetBasicAuth("mallory", "s3cret") },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "not basic scheme",
			setHeader:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "garbled base64",
			setHeader:  func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!not-base64") },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "stored hash is not accepted as password",
			setHeader:  func(r *http.Request) { r.SetBasicAuth("alice", "") },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			tt.setHeader(req)
			rec := httptest.NewRecorder()

			gate.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="Task Management System"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

type failingLookup struct{}

func (failingLookup) GetUserByUsername(context.Context, string) (*model.User, error) {
	return nil, errors.New("database is locked")
}

func TestBasicAuth_LookupFailure(t *testing.T) {
	gate := auth.BasicAuth(failingLookup{}, "")(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("pa55", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "pa55", hash)
	assert.True(t, auth.VerifyPassword("pa55", hash))
	assert.False(t, auth.VerifyPassword("pa56", hash))
	assert.False(t, auth.VerifyPassword("pa55", "pa55"), "plaintext must never verify")
}
