package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/tests/testutil"
)

func TestUserLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash-1")
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "alice", created.Username)

	_, err = s.CreateUser(ctx, "alice", "hash-2")
	assert.ErrorIs(t, err, model.ErrUserExists)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.PasswordHash)

	require.NoError(t, s.SetUserPassword(ctx, "alice", "hash-3"))
	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-3", got.PasswordHash)

	_, err = s.CreateUser(ctx, "bob", "hash-b")
	require.NoError(t, err)
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	require.NoError(t, s.DeleteUser(ctx, "alice"))
	_, err = s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserStore_MissingUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetUserPassword(ctx, "nobody", "x"), model.ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, "nobody"), model.ErrUserNotFound)
}
