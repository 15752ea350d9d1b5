package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/db"
)

// PostgresWishStore implements WishStore on top of PostgreSQL.
type PostgresWishStore struct {
	pool *db.Pool
}

// NewPostgresWishStore creates a postgres-backed wish store.
func NewPostgresWishStore(pool *db.Pool) *PostgresWishStore {
	return &PostgresWishStore{pool: pool}
}

func (s *PostgresWishStore) Save(ctx context.Context, wish *model.Wish) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wishes (game_id, user_id, wanted, not_wanted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id, user_id) DO UPDATE
		SET wanted = EXCLUDED.wanted,
		    not_wanted = EXCLUDED.not_wanted,
		    updated_at = NOW()`,
		wish.GameID, wish.UserID, wish.Wanted, wish.NotWanted)
	if err != nil {
		return fmt.Errorf("upsert wish: %w", err)
	}
	return nil
}

func (s *PostgresWishStore) Get(ctx context.Context, gameID string, userID int64) (*model.Wish, error) {
	wish := &model.Wish{}
	err := s.pool.QueryRow(ctx, `
		SELECT game_id, user_id, wanted, not_wanted, updated_at
		FROM wishes WHERE game_id = $1 AND user_id = $2`,
		gameID, userID).
		Scan(&wish.GameID, &wish.UserID, &wish.Wanted, &wish.NotWanted,
			&wish.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select wish: %w", err)
	}
	return wish, nil
}

func (s *PostgresWishStore) DeleteByGame(ctx context.Context, gameID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM wishes WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete wishes: %w", err)
	}
	return nil
}
