package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/db"
)

// PostgresSessionStore implements SessionStore on top of PostgreSQL. The
// dialog state is stored as a JSONB blob so state shape changes never need
// a schema migration.
type PostgresSessionStore struct {
	pool *db.Pool
}

// NewPostgresSessionStore creates a postgres-backed session store.
func NewPostgresSessionStore(pool *db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) Get(ctx context.Context, userID int64) (model.SessionState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT state FROM sessions WHERE user_id = $1`, userID).
		Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Idle(), nil
		}
		return model.Idle(), fmt.Errorf("select session: %w", err)
	}

	var state model.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.Idle(), fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

func (s *PostgresSessionStore) Set(ctx context.Context, userID int64, state model.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (user_id, state)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = NOW()`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Clear(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
