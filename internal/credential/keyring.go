// Package credential remembers taskctl logins in the system keyring.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "taskctl"

// ErrNotFound is returned when no login is stored for a server.
var ErrNotFound = errors.New("no stored credentials")

// Login is a remembered username and password for one server.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store saves logins keyed by server URL.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store on the first available system backend, falling back
// to an encrypted file under ~/.config/taskctl/credentials.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir(),
		FilePasswordFunc:         keyring.FixedStringPrompt("taskctl-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

func fileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.config/taskctl/credentials"
	}
	return filepath.Join(home, ".config", "taskctl", "credentials")
}

func key(serverURL string) string {
	return "login:" + strings.TrimRight(serverURL, "/")
}

// Load returns the login stored for serverURL.
func (s *Store) Load(serverURL string) (Login, error) {
	item, err := s.ring.Get(key(serverURL))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Login{}, ErrNotFound
	}
	if err != nil {
		return Login{}, fmt.Errorf("getting credential for %s: %w", serverURL, err)
	}

	var l Login
	if err := json.Unmarshal(item.Data, &l); err != nil {
		return Login{}, fmt.Errorf("decoding credential for %s: %w", serverURL, err)
	}
	return l, nil
}

// Save stores l for serverURL, replacing any previous login.
func (s *Store) Save(serverURL string, l Login) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	err = s.ring.Set(keyring.Item{
		Key:         key(serverURL),
		Data:        data,
		Label:       "taskctl login for " + serverURL,
		Description: "Task API credentials",
	})
	if err != nil {
		return fmt.Errorf("setting credential for %s: %w", serverURL, err)
	}
	return nil
}

// Delete forgets the login for serverURL. Deleting a missing login is not
// an error.
func (s *Store) Delete(serverURL string) error {
	err := s.ring.Remove(key(serverURL))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential for %s: %w", serverURL, err)
	}
	return nil
}
