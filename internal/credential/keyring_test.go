package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskapi/internal/credential"
)

func TestStore_Lifecycle(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))
	const server = "http://localhost:8080"

	_, err := s.Load(server)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, s.Save(server+"/", credential.Login{Username: "alice", Password: "pw"}))

	l, err := s.Load(server)
	require.NoError(t, err)
	assert.Equal(t, credential.Login{Username: "alice", Password: "pw"}, l)

	require.NoError(t, s.Save(server, credential.Login{Username: "bob", Password: "pw2"}))
	l, err = s.Load(server)
	require.NoError(t, err)
	assert.Equal(t, "bob", l.Username)

	_, err = s.Load("http://other:8080")
	assert.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, s.Delete(server))
	_, err = s.Load(server)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	assert.NoError(t, s.Delete(server), "deleting twice is fine")
}

func TestStore_CorruptEntry(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: "login:http://h", Data: []byte("not json")}})
	s := credential.NewStore(ring)

	_, err := s.Load("http://h")
	require.Error(t, err)
	assert.NotErrorIs(t, err, credential.ErrNotFound)
}
