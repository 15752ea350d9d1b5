package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"secret-santa-bot/internal/assign"
	"secret-santa-bot/internal/config"
	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/lock"
	"secret-santa-bot/internal/repository"
)

// Game id alphabet excludes ':' and telebot's callback separators so ids
// embed safely in callback data.
const (
	gameIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	gameIDLength   = 8

	// MinNameLen is the minimum game name length in runes.
	MinNameLen = 2
)

// AssignmentNotice carries everything needed to tell one giver who they
// drew, including the receiver's wishes if any were recorded.
type AssignmentNotice struct {
	GiverID   int64
	Receiver  *model.User
	Wanted    string
	NotWanted string
}

// DistributionResult is the outcome of a successful distribution.
type DistributionResult struct {
	Game    *model.Game
	Notices []AssignmentNotice
}

// GameService implements the game lifecycle: creation, membership, budget
// changes, deletion and assignment distribution.
type GameService struct {
	games  repository.GameStore
	users  repository.UserStore
	wishes repository.WishStore
	locks  *lock.KeyedLock
	cfg    config.SantaConfig
}

// NewGameService creates a game service.
func NewGameService(
	games repository.GameStore,
	users repository.UserStore,
	wishes repository.WishStore,
	locks *lock.KeyedLock,
	cfg config.SantaConfig,
) *GameService {
	return &GameService{
		games:  games,
		users:  users,
		wishes: wishes,
		locks:  locks,
		cfg:    cfg,
	}
}

// ValidateName checks a game name. Surrounding whitespace is not counted.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < MinNameLen {
		return "", ErrNameTooShort
	}
	return trimmed, nil
}

// Create registers a new game with the owner as its first participant.
func (s *GameService) Create(ctx context.Context, owner *model.User, name string, budget float64) (*model.Game, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		return nil, ErrBudgetNotPositive
	}
	if budget > s.cfg.MaxBudget {
		return nil, ErrBudgetTooLarge
	}

	if err := s.users.Upsert(ctx, owner); err != nil {
		return nil, fmt.Errorf("save owner: %w", err)
	}

	id, err := s.newGameID(ctx)
	if err != nil {
		return nil, err
	}

	game := &model.Game{
		ID:      id,
		Name:    trimmed,
		Budget:  budget,
		OwnerID: owner.ID,
		Players: []int64{owner.ID},
	}
	if err := s.games.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	log.Info().
		Str("game_id", id).
		Int64("owner_id", owner.ID).
		Msg("game created")

	return game, nil
}

// newGameID generates a short unique id, retrying on the unlikely collision.
func (s *GameService) newGameID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := gonanoid.Generate(gameIDAlphabet, gameIDLength)
		if err != nil {
			return "", fmt.Errorf("generate game id: %w", err)
		}
		_, err = s.games.Get(ctx, id)
		if errors.Is(err, repository.ErrGameNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check game id: %w", err)
		}
	}
	return "", errors.New("could not generate unique game id")
}

// Get returns a game by id.
func (s *GameService) Get(ctx context.Context, gameID string) (*model.Game, error) {
	return s.games.Get(ctx, gameID)
}

// ListByUser returns the games the user participates in, newest first,
// capped by the configured listing limit.
func (s *GameService) ListByUser(ctx context.Context, userID int64) ([]*model.Game, error) {
	games, err := s.games.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxGamesListed > 0 && len(games) > s.cfg.MaxGamesListed {
		games = games[:s.cfg.MaxGamesListed]
	}
	return games, nil
}

// Join adds a user to a game. Joining twice returns ErrAlreadyMember,
// joining a distributed game returns ErrGameStarted. On success the
// updated game is returned so callers can notify the owner.
func (s *GameService) Join(ctx context.Context, gameID string, user *model.User) (*model.Game, error) {
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	var game *model.Game
	err := s.locks.WithLock(lock.GameKey(gameID), func() error {
		if err := s.games.AddPlayer(ctx, gameID, user.ID); err != nil {
			return err
		}
		var err error
		game, err = s.games.Get(ctx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", gameID).
		Int64("user_id", user.ID).
		Msg("player joined")

	return game, nil
}

// Kick removes a participant from a game. Only the owner may kick, and
// the owner cannot kick themselves.
func (s *GameService) Kick(ctx context.Context, gameID string, ownerID, targetID int64) error {
	return s.locks.WithLock(lock.GameKey(gameID), func() error {
		game, err := s.games.Get(ctx, gameID)
		if err != nil {
			return err
		}
		if game.OwnerID != ownerID {
			return ErrNotOwner
		}
		if targetID == game.OwnerID {
			return ErrCannotKickOwner
		}
		if err := s.games.RemovePlayer(ctx, gameID, targetID); err != nil {
			return err
		}

		log.Info().
			Str("game_id", gameID).
			Int64("user_id", targetID).
			Msg("player kicked")
		return nil
	})
}

// SetBudget changes the budget of a not-yet-started game. Owner only.
func (s *GameService) SetBudget(ctx context.Context, gameID string, ownerID int64, budget float64) error {
	if budget <= 0 {
		return ErrBudgetNotPositive
	}
	if budget > s.cfg.MaxBudget {
		return ErrBudgetTooLarge
	}

	return s.locks.WithLock(lock.GameKey(gameID), func() error {
		game, err := s.games.Get(ctx, gameID)
		if err != nil {
			return err
		}
		if game.OwnerID != ownerID {
			return ErrNotOwner
		}
		return s.games.SetBudget(ctx, gameID, budget)
	})
}

// Delete removes a game entirely. Owner only. It returns the ids of the
// other participants so the caller can tell them the game is gone.
func (s *GameService) Delete(ctx context.Context, gameID string, ownerID int64) ([]int64, error) {
	var toNotify []int64
	err := s.locks.WithLock(lock.GameKey(gameID), func() error {
		game, err := s.games.Get(ctx, gameID)
		if err != nil {
			return err
		}
		if game.OwnerID != ownerID {
			return ErrNotOwner
		}
		for _, id := range game.Players {
			if id != ownerID {
				toNotify = append(toNotify, id)
			}
		}
		if err := s.wishes.DeleteByGame(ctx, gameID); err != nil {
			return fmt.Errorf("delete wishes: %w", err)
		}
		return s.games.Delete(ctx, gameID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", gameID).
		Int64("owner_id", ownerID).
		Msg("game deleted")

	return toNotify, nil
}

// Distribute draws the assignments and marks the game started. Owner only,
// at least two participants, and only once per game. The second trigger of
// a race loses at the store's atomic check-and-set.
func (s *GameService) Distribute(ctx context.Context, gameID string, ownerID int64) (*DistributionResult, error) {
	var result *DistributionResult
	err := s.locks.WithLock(lock.GameKey(gameID), func() error {
		game, err := s.games.Get(ctx, gameID)
		if err != nil {
			return err
		}
		if game.OwnerID != ownerID {
			return ErrNotOwner
		}
		if game.Started {
			return repository.ErrGameStarted
		}

		assignments, err := assign.Cycle(game.Players)
		if err != nil {
			if errors.Is(err, assign.ErrTooFewParticipants) {
				return ErrTooFewPlayers
			}
			return err
		}

		if err := s.games.Distribute(ctx, gameID, assignments); err != nil {
			return err
		}

		game.Started = true
		game.Assignments = assignments

		notices, err := s.buildNotices(ctx, game)
		if err != nil {
			return err
		}
		result = &DistributionResult{Game: game, Notices: notices}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", gameID).
		Int("players", result.Game.PlayerCount()).
		Msg("assignments distributed")

	return result, nil
}

func (s *GameService) buildNotices(ctx context.Context, game *model.Game) ([]AssignmentNotice, error) {
	users, err := s.users.GetMany(ctx, game.Players)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}

	notices := make([]AssignmentNotice, 0, len(game.Players))
	for _, giverID := range game.Players {
		receiverID := game.Assignments[giverID]
		receiver, ok := users[receiverID]
		if !ok {
			receiver = &model.User{ID: receiverID}
		}

		notice := AssignmentNotice{GiverID: giverID, Receiver: receiver}
		wish, err := s.wishes.Get(ctx, game.ID, receiverID)
		if err != nil {
			return nil, fmt.Errorf("load wish: %w", err)
		}
		if wish != nil {
			notice.Wanted = wish.Wanted
			notice.NotWanted = wish.NotWanted
		}
		notices = append(notices, notice)
	}
	return notices, nil
}

// Roster returns a game together with its participants in join order.
func (s *GameService) Roster(ctx context.Context, gameID string) (*model.Game, []*model.User, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.users.GetMany(ctx, game.Players)
	if err != nil {
		return nil, nil, fmt.Errorf("load players: %w", err)
	}

	roster := make([]*model.User, 0, len(game.Players))
	for _, id := range game.Players {
		if user, ok := users[id]; ok {
			roster = append(roster, user)
		} else {
			roster = append(roster, &model.User{ID: id})
		}
	}
	return game, roster, nil
}

// Receiver returns who the giver drew in a started game, with the
// receiver's wishes if recorded.
func (s *GameService) Receiver(ctx context.Context, gameID string, giverID int64) (*AssignmentNotice, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.HasPlayer(giverID) {
		return nil, ErrNotMember
	}
	if !game.Started {
		return nil, ErrNotStarted
	}

	receiverID := game.Assignments[giverID]
	receiver, err := s.users.Get(ctx, receiverID)
	if errors.Is(err, repository.ErrUserNotFound) {
		receiver = &model.User{ID: receiverID}
	} else if err != nil {
		return nil, err
	}

	notice := &AssignmentNotice{GiverID: giverID, Receiver: receiver}
	wish, err := s.wishes.Get(ctx, gameID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("load wish: %w", err)
	}
	if wish != nil {
		notice.Wanted = wish.Wanted
		notice.NotWanted = wish.NotWanted
	}
	return notice, nil
}

// SaveWish records what a participant wants and does not want to receive.
func (s *GameService) SaveWish(ctx context.Context, gameID string, userID int64, wanted, notWanted string) error {
	if len([]rune(wanted)) > s.cfg.MaxWishLen || len([]rune(notWanted)) > s.cfg.MaxWishLen {
		return ErrWishTooLong
	}

	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.HasPlayer(userID) {
		return ErrNotMember
	}

	return s.wishes.Save(ctx, &model.Wish{
		GameID:    gameID,
		UserID:    userID,
		Wanted:    wanted,
		NotWanted: notWanted,
	})
}
