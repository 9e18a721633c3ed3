package store

import (
	"context"

	"github.com/lanetsoft/agent-hub/internal/users"
)

const createUserSQL = `
INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3)
RETURNING id::text, username, password_hash, role, created_at`

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, role string) (users.User, error) {
	var u users.User
	err := s.pool.QueryRow(ctx, createUserSQL, username, passwordHash, role).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return users.User{}, err
	}
	return u, nil
}

const getUserByUsernameSQL = `
SELECT id::text, username, password_hash, role, created_at
FROM users
WHERE username = $1`

func (s *Store) GetUserByUsername(ctx context.Context, username string) (users.User, error) {
	var u users.User
	err := s.pool.QueryRow(ctx, getUserByUsernameSQL, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return users.User{}, err
	}
	return u, nil
}
