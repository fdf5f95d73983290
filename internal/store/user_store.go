package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskapi/internal/model"
)

// GetUserByUsername retrieves a user by exact username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting user %q: %w", username, model.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	return &u, nil
}

// CreateUser inserts a new user with an already-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error) {
	var created model.User
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		err := tx.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM users WHERE username = ?", username)
		if err != nil {
			return err
		}
		if count > 0 {
			return model.ErrUserExists
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
			username, passwordHash, s.now())
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &created,
			"SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id)
	})
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return &created, nil
}

// SetUserPassword replaces the stored hash for username.
func (s *SQLiteStore) SetUserPassword(ctx context.Context, username, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return fmt.Errorf("updating password for %q: %w", username, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating password for %q: %w", username, model.ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes a user by username.
func (s *SQLiteStore) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("deleting user %q: %w", username, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting user %q: %w", username, model.ErrUserNotFound)
	}
	return nil
}

// ListUsers returns every user ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := s.db.SelectContext(ctx, &users,
		"SELECT id, username, password_hash, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}
