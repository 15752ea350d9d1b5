// Package repository defines the storage interfaces of the bot and their
// postgres, redis and in-memory implementations.
package repository

import (
	"context"
	"errors"

	"secret-santa-bot/internal/model"
)

var (
	// ErrGameNotFound is returned when no game exists for the given id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameStarted is returned when a mutation is attempted on a game
	// whose assignments have already been distributed.
	ErrGameStarted = errors.New("game already started")
	// ErrAlreadyMember is returned when a user joins a game twice.
	ErrAlreadyMember = errors.New("user already in game")
	// ErrNotMember is returned when removing a user who is not in the game.
	ErrNotMember = errors.New("user not in game")
	// ErrUserNotFound is returned when no user exists for the given id.
	ErrUserNotFound = errors.New("user not found")
)

// GameStore persists games, their participant lists and assignments.
type GameStore interface {
	// Create stores a new game. The game id must be unique.
	Create(ctx context.Context, game *model.Game) error
	// Get returns the game with the given id or ErrGameNotFound.
	Get(ctx context.Context, id string) (*model.Game, error)
	// ListByUser returns all games the user participates in, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*model.Game, error)
	// AddPlayer appends a user to the participant list. Returns
	// ErrGameStarted if assignments were already distributed and
	// ErrAlreadyMember if the user already joined.
	AddPlayer(ctx context.Context, gameID string, userID int64) error
	// RemovePlayer removes a user from the participant list. Returns
	// ErrGameStarted or ErrNotMember accordingly.
	RemovePlayer(ctx context.Context, gameID string, userID int64) error
	// SetBudget updates the budget. Returns ErrGameStarted if the game
	// already started.
	SetBudget(ctx context.Context, gameID string, budget float64) error
	// Delete removes the game and everything attached to it.
	Delete(ctx context.Context, gameID string) error
	// Distribute atomically marks the game as started and stores the
	// assignments. Returns ErrGameStarted if the game was already
	// started, leaving the stored assignments untouched.
	Distribute(ctx context.Context, gameID string, assignments map[int64]int64) error
}

// UserStore persists user profiles for rendering names in player lists
// and assignment notifications.
type UserStore interface {
	// Upsert creates the user or refreshes username and full name.
	Upsert(ctx context.Context, user *model.User) error
	// Get returns the user with the given id or ErrUserNotFound.
	Get(ctx context.Context, id int64) (*model.User, error)
	// GetMany returns the users for the given ids, keyed by id. Missing
	// users are simply absent from the result.
	GetMany(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

// SessionStore persists the per-user dialog state.
type SessionStore interface {
	// Get returns the session state for the user. An absent session is
	// returned as the idle state, never as an error.
	Get(ctx context.Context, userID int64) (model.SessionState, error)
	// Set stores the session state for the user.
	Set(ctx context.Context, userID int64, state model.SessionState) error
	// Clear resets the user session to idle.
	Clear(ctx context.Context, userID int64) error
}

// WishStore persists per-player wishes within a game.
type WishStore interface {
	// Save creates or replaces the wish of a user in a game.
	Save(ctx context.Context, wish *model.Wish) error
	// Get returns the wish of a user in a game, or nil if none was set.
	Get(ctx context.Context, gameID string, userID int64) (*model.Wish, error)
	// DeleteByGame removes all wishes attached to a game.
	DeleteByGame(ctx context.Context, gameID string) error
}
