package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"secret-santa-bot/internal/config"
	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/lock"
	"secret-santa-bot/internal/repository"
)

// Outcome tells the handler what a dialog step produced.
type Outcome string

const (
	// OutcomeNone means the text was not part of any dialog.
	OutcomeNone Outcome = "none"
	// OutcomeAskBudget means the game name was accepted, ask for a budget.
	OutcomeAskBudget Outcome = "ask_budget"
	// OutcomeGameCreated means the creation dialog finished.
	OutcomeGameCreated Outcome = "game_created"
	// OutcomeJoined means the join-by-code dialog finished.
	OutcomeJoined Outcome = "joined"
	// OutcomeBudgetChanged means the budget-edit dialog finished.
	OutcomeBudgetChanged Outcome = "budget_changed"
	// OutcomeAskNotWanted means the wanted text was accepted, ask what the
	// player does not want.
	OutcomeAskNotWanted Outcome = "ask_not_wanted"
	// OutcomeWishSaved means the wish dialog finished.
	OutcomeWishSaved Outcome = "wish_saved"
)

// TextResult is what a successful dialog step hands back to the handler.
// Game is set when the step produced or loaded a game. OwnerToNotify is a
// non-zero user id when the game owner should hear about the event.
type TextResult struct {
	Outcome       Outcome
	Game          *model.Game
	OwnerToNotify int64
}

// DialogService drives the per-user conversational state machine. Steps
// validate input against the current state, mutate games through
// GameService and advance or clear the stored session.
//
// Validation failures (bad budget, short name, long wish) keep the state
// so the user can simply retry. Permission and not-found failures clear
// the state, except inside the join dialog where an unknown or started
// code keeps the state for another attempt.
type DialogService struct {
	sessions repository.SessionStore
	games    *GameService
	locks    *lock.KeyedLock
	cfg      config.SantaConfig
}

// NewDialogService creates a dialog service.
func NewDialogService(
	sessions repository.SessionStore,
	games *GameService,
	locks *lock.KeyedLock,
	cfg config.SantaConfig,
) *DialogService {
	return &DialogService{
		sessions: sessions,
		games:    games,
		locks:    locks,
		cfg:      cfg,
	}
}

// State returns the current dialog state of a user.
func (s *DialogService) State(ctx context.Context, userID int64) (model.SessionState, error) {
	return s.sessions.Get(ctx, userID)
}

// StartCreate begins the game creation dialog.
func (s *DialogService) StartCreate(ctx context.Context, userID int64) error {
	return s.sessions.Set(ctx, userID, model.SessionState{Kind: model.StateAwaitingGameName})
}

// StartJoin begins the join-by-code dialog.
func (s *DialogService) StartJoin(ctx context.Context, userID int64) error {
	return s.sessions.Set(ctx, userID, model.SessionState{Kind: model.StateAwaitingJoinCode})
}

// StartBudgetEdit begins the budget-edit dialog for a game the user owns.
func (s *DialogService) StartBudgetEdit(ctx context.Context, userID int64, gameID string) error {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if game.OwnerID != userID {
		return ErrNotOwner
	}
	if game.Started {
		return repository.ErrGameStarted
	}
	return s.sessions.Set(ctx, userID, model.SessionState{
		Kind:   model.StateAwaitingNewBudget,
		GameID: gameID,
	})
}

// StartWish begins the wish dialog for a game the user participates in.
func (s *DialogService) StartWish(ctx context.Context, userID int64, gameID string) error {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.HasPlayer(userID) {
		return ErrNotMember
	}
	return s.sessions.Set(ctx, userID, model.SessionState{
		Kind:   model.StateAwaitingWishWanted,
		GameID: gameID,
	})
}

// Cancel unconditionally returns the user to idle, dropping any staged
// input.
func (s *DialogService) Cancel(ctx context.Context, userID int64) error {
	return s.sessions.Clear(ctx, userID)
}

// Skip advances a wish dialog recording an empty answer for the current
// step. Outside the wish dialog it does nothing.
func (s *DialogService) Skip(ctx context.Context, userID int64) (*TextResult, error) {
	var result *TextResult
	err := s.locks.WithLock(lock.UserKey(userID), func() error {
		state, err := s.sessions.Get(ctx, userID)
		if err != nil {
			return err
		}

		switch state.Kind {
		case model.StateAwaitingWishWanted:
			state.Kind = model.StateAwaitingWishNotWanted
			state.StagedWanted = ""
			if err := s.sessions.Set(ctx, userID, state); err != nil {
				return err
			}
			result = &TextResult{Outcome: OutcomeAskNotWanted}
			return nil
		case model.StateAwaitingWishNotWanted:
			return s.finishWish(ctx, userID, state, "", &result)
		default:
			result = &TextResult{Outcome: OutcomeNone}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandleText routes free-form text to the dialog step the user is in.
func (s *DialogService) HandleText(ctx context.Context, user *model.User, text string) (*TextResult, error) {
	var result *TextResult
	err := s.locks.WithLock(lock.UserKey(user.ID), func() error {
		state, err := s.sessions.Get(ctx, user.ID)
		if err != nil {
			return err
		}

		switch state.Kind {
		case model.StateAwaitingGameName:
			return s.stepGameName(ctx, user.ID, text, &result)
		case model.StateAwaitingGameBudget:
			return s.stepGameBudget(ctx, user, state, text, &result)
		case model.StateAwaitingJoinCode:
			return s.stepJoinCode(ctx, user, text, &result)
		case model.StateAwaitingNewBudget:
			return s.stepNewBudget(ctx, user.ID, state, text, &result)
		case model.StateAwaitingWishWanted:
			return s.stepWishWanted(ctx, user.ID, state, text, &result)
		case model.StateAwaitingWishNotWanted:
			return s.stepWishNotWanted(ctx, user.ID, state, text, &result)
		default:
			result = &TextResult{Outcome: OutcomeNone}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *DialogService) stepGameName(ctx context.Context, userID int64, text string, result **TextResult) error {
	name, err := ValidateName(text)
	if err != nil {
		return err
	}
	err = s.sessions.Set(ctx, userID, model.SessionState{
		Kind:       model.StateAwaitingGameBudget,
		StagedName: name,
	})
	if err != nil {
		return err
	}
	*result = &TextResult{Outcome: OutcomeAskBudget}
	return nil
}

func (s *DialogService) stepGameBudget(ctx context.Context, user *model.User, state model.SessionState, text string, result **TextResult) error {
	budget, err := ParseBudget(text, s.cfg.MaxBudget)
	if err != nil {
		return err
	}

	game, err := s.games.Create(ctx, user, state.StagedName, budget)
	if err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, user.ID); err != nil {
		return err
	}
	*result = &TextResult{Outcome: OutcomeGameCreated, Game: game}
	return nil
}

func (s *DialogService) stepJoinCode(ctx context.Context, user *model.User, text string, result **TextResult) error {
	code := strings.TrimSpace(text)

	game, err := s.games.Join(ctx, code, user)
	if err != nil {
		// Already being in the game ends the dialog. An unknown or
		// started code does not, the user may try another one.
		if errors.Is(err, repository.ErrAlreadyMember) {
			if clearErr := s.sessions.Clear(ctx, user.ID); clearErr != nil {
				log.Warn().Err(clearErr).Int64("user_id", user.ID).Msg("failed to clear session")
			}
		}
		return err
	}
	if err := s.sessions.Clear(ctx, user.ID); err != nil {
		return err
	}

	res := &TextResult{Outcome: OutcomeJoined, Game: game}
	if game.OwnerID != user.ID {
		res.OwnerToNotify = game.OwnerID
	}
	*result = res
	return nil
}

func (s *DialogService) stepNewBudget(ctx context.Context, userID int64, state model.SessionState, text string, result **TextResult) error {
	budget, err := ParseBudget(text, s.cfg.MaxBudget)
	if err != nil {
		return err
	}

	if err := s.games.SetBudget(ctx, state.GameID, userID, budget); err != nil {
		// The game vanished or changed hands mid-dialog, nothing left
		// to retry.
		if clearErr := s.sessions.Clear(ctx, userID); clearErr != nil {
			log.Warn().Err(clearErr).Int64("user_id", userID).Msg("failed to clear session")
		}
		return err
	}
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return err
	}

	game, err := s.games.Get(ctx, state.GameID)
	if err != nil {
		return err
	}
	*result = &TextResult{Outcome: OutcomeBudgetChanged, Game: game}
	return nil
}

func (s *DialogService) stepWishWanted(ctx context.Context, userID int64, state model.SessionState, text string, result **TextResult) error {
	if len([]rune(text)) > s.cfg.MaxWishLen {
		return ErrWishTooLong
	}

	state.Kind = model.StateAwaitingWishNotWanted
	state.StagedWanted = text
	if err := s.sessions.Set(ctx, userID, state); err != nil {
		return err
	}
	*result = &TextResult{Outcome: OutcomeAskNotWanted}
	return nil
}

func (s *DialogService) stepWishNotWanted(ctx context.Context, userID int64, state model.SessionState, text string, result **TextResult) error {
	if len([]rune(text)) > s.cfg.MaxWishLen {
		return ErrWishTooLong
	}
	return s.finishWish(ctx, userID, state, text, result)
}

func (s *DialogService) finishWish(ctx context.Context, userID int64, state model.SessionState, notWanted string, result **TextResult) error {
	err := s.games.SaveWish(ctx, state.GameID, userID, state.StagedWanted, notWanted)
	if err != nil {
		if clearErr := s.sessions.Clear(ctx, userID); clearErr != nil {
			log.Warn().Err(clearErr).Int64("user_id", userID).Msg("failed to clear session")
		}
		return err
	}
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return err
	}
	*result = &TextResult{Outcome: OutcomeWishSaved, Game: &model.Game{ID: state.GameID}}
	return nil
}
