package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"secret-santa-bot/internal/model"
)

// MemoryGameStore implements GameStore in process memory. It backs the
// memory storage driver and the service tests.
type MemoryGameStore struct {
	mu    sync.RWMutex
	games map[string]*model.Game
}

// NewMemoryGameStore creates an empty in-memory game store.
func NewMemoryGameStore() *MemoryGameStore {
	return &MemoryGameStore{games: make(map[string]*model.Game)}
}

func cloneGame(game *model.Game) *model.Game {
	clone := *game
	clone.Players = append([]int64(nil), game.Players...)
	if game.Assignments != nil {
		clone.Assignments = make(map[int64]int64, len(game.Assignments))
		for k, v := range game.Assignments {
			clone.Assignments[k] = v
		}
	}
	return &clone
}

func (s *MemoryGameStore) Create(_ context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := cloneGame(game)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.games[game.ID] = stored
	return nil
}

func (s *MemoryGameStore) Get(_ context.Context, id string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return cloneGame(game), nil
}

func (s *MemoryGameStore) ListByUser(_ context.Context, userID int64) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var games []*model.Game
	for _, game := range s.games {
		if game.HasPlayer(userID) {
			games = append(games, cloneGame(game))
		}
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	return games, nil
}

func (s *MemoryGameStore) AddPlayer(_ context.Context, gameID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if game.Started {
		return ErrGameStarted
	}
	if game.HasPlayer(userID) {
		return ErrAlreadyMember
	}
	game.Players = append(game.Players, userID)
	game.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryGameStore) RemovePlayer(_ context.Context, gameID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if game.Started {
		return ErrGameStarted
	}
	for i, id := range game.Players {
		if id == userID {
			game.Players = append(game.Players[:i], game.Players[i+1:]...)
			game.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotMember
}

func (s *MemoryGameStore) SetBudget(_ context.Context, gameID string, budget float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if game.Started {
		return ErrGameStarted
	}
	game.Budget = budget
	game.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryGameStore) Delete(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return ErrGameNotFound
	}
	delete(s.games, gameID)
	return nil
}

func (s *MemoryGameStore) Distribute(_ context.Context, gameID string, assignments map[int64]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if game.Started {
		return ErrGameStarted
	}
	game.Started = true
	game.Assignments = make(map[int64]int64, len(assignments))
	for k, v := range assignments {
		game.Assignments[k] = v
	}
	game.UpdatedAt = time.Now()
	return nil
}

// MemoryUserStore implements UserStore in process memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[int64]*model.User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[int64]*model.User)}
}

func (s *MemoryUserStore) Upsert(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *user
	stored.UpdatedAt = now
	if existing, ok := s.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.users[user.ID] = &stored
	return nil
}

func (s *MemoryUserStore) Get(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryUserStore) GetMany(_ context.Context, ids []int64) (map[int64]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[int64]*model.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			clone := *user
			users[id] = &clone
		}
	}
	return users, nil
}

// MemorySessionStore implements SessionStore in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]model.SessionState
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]model.SessionState)}
}

func (s *MemorySessionStore) Get(_ context.Context, userID int64) (model.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[userID]
	if !ok {
		return model.Idle(), nil
	}
	return state, nil
}

func (s *MemorySessionStore) Set(_ context.Context, userID int64, state model.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = state
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

type wishKey struct {
	gameID string
	userID int64
}

// MemoryWishStore implements WishStore in process memory.
type MemoryWishStore struct {
	mu     sync.RWMutex
	wishes map[wishKey]*model.Wish
}

// NewMemoryWishStore creates an empty in-memory wish store.
func NewMemoryWishStore() *MemoryWishStore {
	return &MemoryWishStore{wishes: make(map[wishKey]*model.Wish)}
}

func (s *MemoryWishStore) Save(_ context.Context, wish *model.Wish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *wish
	stored.UpdatedAt = time.Now()
	s.wishes[wishKey{wish.GameID, wish.UserID}] = &stored
	return nil
}

func (s *MemoryWishStore) Get(_ context.Context, gameID string, userID int64) (*model.Wish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wish, ok := s.wishes[wishKey{gameID, userID}]
	if !ok {
		return nil, nil
	}
	clone := *wish
	return &clone, nil
}

func (s *MemoryWishStore) DeleteByGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.wishes {
		if key.gameID == gameID {
			delete(s.wishes, key)
		}
	}
	return nil
}
