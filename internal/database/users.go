package database

import (
	"context"

	"github.com/google/uuid"
)

const createUser = `
INSERT INTO users (email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING id, email, hashed_password, full_name, role, created_at
`

type CreateUserParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.HashedPassword, arg.FullName, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, hashed_password, full_name, role, created_at
FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, hashed_password, full_name, role, created_at
FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.CreatedAt)
	return u, err
}
