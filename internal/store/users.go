package store

import (
	"context"
	"fmt"
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, role FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, role)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, role`,
		u.Name, u.Email, u.Role,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u User) (User, error) {
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4
		WHERE id = $1
		RETURNING id, name, email, role`,
		u.ID, u.Name, u.Email, u.Role,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		return User{}, fmt.Errorf("update user %d: %w", u.ID, notFound(err))
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if err := affected(tag.RowsAffected()); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}
