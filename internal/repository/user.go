package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/db"
)

// PostgresUserStore implements UserStore on top of PostgreSQL.
type PostgresUserStore struct {
	pool *db.Pool
}

// NewPostgresUserStore creates a postgres-backed user store.
func NewPostgresUserStore(pool *db.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) Upsert(ctx context.Context, user *model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    full_name = EXCLUDED.full_name,
		    updated_at = NOW()`,
		user.ID, user.Username, user.FullName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Get(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, full_name, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.FullName,
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) GetMany(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	if len(ids) == 0 {
		return map[int64]*model.User{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, username, full_name, created_at, updated_at
		FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := make(map[int64]*model.User, len(ids))
	for rows.Next() {
		user := &model.User{}
		err := rows.Scan(&user.ID, &user.Username, &user.FullName,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}
