package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/db"
)

// PostgresGameStore implements GameStore on top of PostgreSQL.
type PostgresGameStore struct {
	pool *db.Pool
}

// NewPostgresGameStore creates a postgres-backed game store.
func NewPostgresGameStore(pool *db.Pool) *PostgresGameStore {
	return &PostgresGameStore{pool: pool}
}

func (s *PostgresGameStore) Create(ctx context.Context, game *model.Game) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO games (id, name, budget, owner_id, started)
		VALUES ($1, $2, $3, $4, false)`,
		game.ID, game.Name, game.Budget, game.OwnerID)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	for _, userID := range game.Players {
		_, err = tx.Exec(ctx, `
			INSERT INTO game_players (game_id, user_id)
			VALUES ($1, $2)`,
			game.ID, userID)
		if err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresGameStore) Get(ctx context.Context, id string) (*model.Game, error) {
	game := &model.Game{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, budget, owner_id, started, created_at, updated_at
		FROM games WHERE id = $1`, id).
		Scan(&game.ID, &game.Name, &game.Budget, &game.OwnerID,
			&game.Started, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("select game: %w", err)
	}

	if err := s.loadPlayers(ctx, game); err != nil {
		return nil, err
	}
	if game.Started {
		if err := s.loadAssignments(ctx, game); err != nil {
			return nil, err
		}
	}
	return game, nil
}

func (s *PostgresGameStore) loadPlayers(ctx context.Context, game *model.Game) error {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM game_players
		WHERE game_id = $1 ORDER BY joined_at, user_id`, game.ID)
	if err != nil {
		return fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan player: %w", err)
		}
		game.Players = append(game.Players, userID)
	}
	return rows.Err()
}

func (s *PostgresGameStore) loadAssignments(ctx context.Context, game *model.Game) error {
	rows, err := s.pool.Query(ctx, `
		SELECT giver_id, receiver_id FROM assignments
		WHERE game_id = $1`, game.ID)
	if err != nil {
		return fmt.Errorf("select assignments: %w", err)
	}
	defer rows.Close()

	game.Assignments = make(map[int64]int64)
	for rows.Next() {
		var giverID, receiverID int64
		if err := rows.Scan(&giverID, &receiverID); err != nil {
			return fmt.Errorf("scan assignment: %w", err)
		}
		game.Assignments[giverID] = receiverID
	}
	return rows.Err()
}

func (s *PostgresGameStore) ListByUser(ctx context.Context, userID int64) ([]*model.Game, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id FROM games g
		JOIN game_players gp ON gp.game_id = g.id
		WHERE gp.user_id = $1
		ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select games by user: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(ids))
	for _, id := range ids {
		game, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, nil
}

func (s *PostgresGameStore) AddPlayer(ctx context.Context, gameID string, userID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var started bool
	err = tx.QueryRow(ctx, `
		SELECT started FROM games WHERE id = $1 FOR UPDATE`, gameID).
		Scan(&started)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGameNotFound
		}
		return fmt.Errorf("select game for update: %w", err)
	}
	if started {
		return ErrGameStarted
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO game_players (game_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (game_id, user_id) DO NOTHING`,
		gameID, userID)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyMember
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresGameStore) RemovePlayer(ctx context.Context, gameID string, userID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var started bool
	err = tx.QueryRow(ctx, `
		SELECT started FROM games WHERE id = $1 FOR UPDATE`, gameID).
		Scan(&started)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGameNotFound
		}
		return fmt.Errorf("select game for update: %w", err)
	}
	if started {
		return ErrGameStarted
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM game_players WHERE game_id = $1 AND user_id = $2`,
		gameID, userID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotMember
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresGameStore) SetBudget(ctx context.Context, gameID string, budget float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE games SET budget = $2, updated_at = NOW()
		WHERE id = $1 AND NOT started`, gameID, budget)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing game from one that already started.
		var exists bool
		err = s.pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, gameID).
			Scan(&exists)
		if err != nil {
			return fmt.Errorf("check game exists: %w", err)
		}
		if !exists {
			return ErrGameNotFound
		}
		return ErrGameStarted
	}
	return nil
}

func (s *PostgresGameStore) Delete(ctx context.Context, gameID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (s *PostgresGameStore) Distribute(ctx context.Context, gameID string, assignments map[int64]int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The started flag is flipped exactly once. A second distribution
	// attempt sees zero affected rows and backs off without touching the
	// stored assignments.
	tag, err := tx.Exec(ctx, `
		UPDATE games SET started = true, updated_at = NOW()
		WHERE id = $1 AND NOT started`, gameID)
	if err != nil {
		return fmt.Errorf("mark game started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, gameID).
			Scan(&exists)
		if err != nil {
			return fmt.Errorf("check game exists: %w", err)
		}
		if !exists {
			return ErrGameNotFound
		}
		return ErrGameStarted
	}

	for giverID, receiverID := range assignments {
		_, err = tx.Exec(ctx, `
			INSERT INTO assignments (game_id, giver_id, receiver_id)
			VALUES ($1, $2, $3)`,
			gameID, giverID, receiverID)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
