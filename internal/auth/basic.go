// Package auth implements the HTTP Basic credential gate in front of the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/taskapi/internal/logger"
	"github.com/nhle/taskapi/internal/model"
)

type ctxKey int

const usernameKey ctxKey = iota

// UserLookup is the subset of the user store the gate needs.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// HashPassword returns a bcrypt hash of password at cost. A cost outside
// bcrypt's range falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UsernameFromContext returns the user admitted by the gate, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok
}

// BasicAuth rejects every request that lacks valid Basic credentials for a
// stored user with 401 and a WWW-Authenticate challenge for realm.
func BasicAuth(users UserLookup, realm string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = model.DefaultRealm
	}
	challenge := fmt.Sprintf("Basic realm=%q", realm)

	// Unknown usernames are compared against this hash so both rejection
	// paths cost one bcrypt comparison.
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.DefaultCost)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context()).With("where", "auth")

			username, password, ok := r.BasicAuth()
			if !ok || username == "" {
				log.Debug("auth: missing or malformed credentials")
				unauthorized(w, challenge)
				return
			}

			user, err := users.GetUserByUsername(r.Context(), username)
			switch {
			case errors.Is(err, model.ErrUserNotFound):
				bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
				log.Info("auth: unknown user", "username", username)
				unauthorized(w, challenge)
				return
			case err != nil:
				log.Error("auth: user lookup failed", "username", username, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if !VerifyPassword(password, user.PasswordHash) {
				log.Info("auth: wrong password", "username", username)
				unauthorized(w, challenge)
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, user.Username)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("user", user.Username))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Unauthorized"))
}
