package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/lock"
	"secret-santa-bot/internal/repository"
)

type dialogFixture struct {
	dialogs  *DialogService
	games    *GameService
	sessions repository.SessionStore
}

func newDialogFixture() *dialogFixture {
	locks := lock.New()
	sessions := repository.NewMemorySessionStore()
	games := NewGameService(
		repository.NewMemoryGameStore(),
		repository.NewMemoryUserStore(),
		repository.NewMemoryWishStore(),
		locks,
		testSantaConfig(),
	)
	return &dialogFixture{
		dialogs:  NewDialogService(sessions, games, locks, testSantaConfig()),
		games:    games,
		sessions: sessions,
	}
}

func (f *dialogFixture) stateOf(t *testing.T, userID int64) model.SessionState {
	t.Helper()
	state, err := f.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return state
}

func TestDialog_CreateGameFlow(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	require.NoError(t, f.dialogs.StartCreate(ctx, 100))
	assert.Equal(t, model.StateAwaitingGameName, f.stateOf(t, 100).Kind)

	res, err := f.dialogs.HandleText(ctx, alice, "Winter Gift")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskBudget, res.Outcome)
	assert.Equal(t, model.StateAwaitingGameBudget, f.stateOf(t, 100).Kind)
	assert.Equal(t, "Winter Gift", f.stateOf(t, 100).StagedName)

	res, err = f.dialogs.HandleText(ctx, alice, "1500")
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameCreated, res.Outcome)
	require.NotNil(t, res.Game)
	assert.Equal(t, "Winter Gift", res.Game.Name)
	assert.Equal(t, float64(1500), res.Game.Budget)
	assert.Equal(t, []int64{100}, res.Game.Players)
	assert.True(t, f.stateOf(t, 100).IsIdle())
}

func TestDialog_NameValidationKeepsState(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	require.NoError(t, f.dialogs.StartCreate(ctx, 100))

	_, err := f.dialogs.HandleText(ctx, alice, "X")
	assert.ErrorIs(t, err, ErrNameTooShort)
	assert.Equal(t, model.StateAwaitingGameName, f.stateOf(t, 100).Kind)

	// The retry goes through.
	res, err := f.dialogs.HandleText(ctx, alice, "Party")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskBudget, res.Outcome)
}

func TestDialog_BudgetValidationKeepsStateAndGames(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	require.NoError(t, f.dialogs.StartCreate(ctx, 100))
	_, err := f.dialogs.HandleText(ctx, alice, "Party")
	require.NoError(t, err)

	for _, input := range []string{"abc", "0", "-5", "2000000"} {
		_, err := f.dialogs.HandleText(ctx, alice, input)
		assert.Error(t, err, "input %q", input)
		assert.Equal(t, model.StateAwaitingGameBudget, f.stateOf(t, 100).Kind)

		// No game leaks out of a failed step.
		games, err := f.games.ListByUser(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, games)
	}

	res, err := f.dialogs.HandleText(ctx, alice, "1 500,50")
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameCreated, res.Outcome)
	assert.Equal(t, 1500.50, res.Game.Budget)
}

func TestDialog_JoinByCodeFlow(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")
	bob := testUser(200, "bob")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)

	require.NoError(t, f.dialogs.StartJoin(ctx, 200))

	// An unknown code keeps the dialog open.
	_, err = f.dialogs.HandleText(ctx, bob, "wrongcode")
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
	assert.Equal(t, model.StateAwaitingJoinCode, f.stateOf(t, 200).Kind)

	res, err := f.dialogs.HandleText(ctx, bob, " "+game.ID+" ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeJoined, res.Outcome)
	assert.Equal(t, int64(100), res.OwnerToNotify)
	assert.True(t, f.stateOf(t, 200).IsIdle())

	// A repeat join ends the dialog with a membership report.
	require.NoError(t, f.dialogs.StartJoin(ctx, 200))
	_, err = f.dialogs.HandleText(ctx, bob, game.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyMember)
	assert.True(t, f.stateOf(t, 200).IsIdle())
}

func TestDialog_JoinStartedGameKeepsState(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)
	_, err = f.games.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)
	_, err = f.games.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)

	carol := testUser(300, "carol")
	require.NoError(t, f.dialogs.StartJoin(ctx, 300))
	_, err = f.dialogs.HandleText(ctx, carol, game.ID)
	assert.ErrorIs(t, err, repository.ErrGameStarted)
	assert.Equal(t, model.StateAwaitingJoinCode, f.stateOf(t, 300).Kind)
}

func TestDialog_BudgetEditFlow(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)

	// Only the owner may even start the dialog.
	assert.ErrorIs(t, f.dialogs.StartBudgetEdit(ctx, 200, game.ID), ErrNotOwner)

	require.NoError(t, f.dialogs.StartBudgetEdit(ctx, 100, game.ID))
	state := f.stateOf(t, 100)
	assert.Equal(t, model.StateAwaitingNewBudget, state.Kind)
	assert.Equal(t, game.ID, state.GameID)

	// Garbage keeps the dialog open and the budget intact.
	_, err = f.dialogs.HandleText(ctx, alice, "дорого")
	assert.ErrorIs(t, err, ErrBudgetNotANumber)
	assert.Equal(t, model.StateAwaitingNewBudget, f.stateOf(t, 100).Kind)

	got, err := f.games.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), got.Budget)

	res, err := f.dialogs.HandleText(ctx, alice, "2000")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetChanged, res.Outcome)
	assert.Equal(t, float64(2000), res.Game.Budget)
	assert.True(t, f.stateOf(t, 100).IsIdle())
}

func TestDialog_BudgetEditAfterStartIsRejected(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)
	_, err = f.games.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)
	_, err = f.games.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)

	assert.ErrorIs(t, f.dialogs.StartBudgetEdit(ctx, 100, game.ID), repository.ErrGameStarted)
}

func TestDialog_WishFlow(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)

	// Outsiders cannot record wishes.
	assert.ErrorIs(t, f.dialogs.StartWish(ctx, 999, game.ID), ErrNotMember)

	require.NoError(t, f.dialogs.StartWish(ctx, 100, game.ID))

	res, err := f.dialogs.HandleText(ctx, alice, "книга")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskNotWanted, res.Outcome)
	assert.Equal(t, "книга", f.stateOf(t, 100).StagedWanted)

	res, err = f.dialogs.HandleText(ctx, alice, "носки")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWishSaved, res.Outcome)
	assert.True(t, f.stateOf(t, 100).IsIdle())
}

func TestDialog_WishSkip(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	game, err := f.games.Create(ctx, alice, "Party", 500)
	require.NoError(t, err)

	require.NoError(t, f.dialogs.StartWish(ctx, 100, game.ID))

	// Skipping both steps records an empty wish.
	res, err := f.dialogs.Skip(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskNotWanted, res.Outcome)

	res, err = f.dialogs.Skip(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWishSaved, res.Outcome)
	assert.True(t, f.stateOf(t, 100).IsIdle())

	// Skip outside the wish dialog is a no-op.
	res, err = f.dialogs.Skip(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
}

func TestDialog_CancelClearsEverything(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()
	alice := testUser(100, "alice")

	require.NoError(t, f.dialogs.StartCreate(ctx, 100))
	_, err := f.dialogs.HandleText(ctx, alice, "Party")
	require.NoError(t, err)
	assert.Equal(t, "Party", f.stateOf(t, 100).StagedName)

	require.NoError(t, f.dialogs.Cancel(ctx, 100))
	state := f.stateOf(t, 100)
	assert.True(t, state.IsIdle())
	assert.Empty(t, state.StagedName)
	assert.Empty(t, state.GameID)

	// Text after cancel belongs to no dialog.
	res, err := f.dialogs.HandleText(ctx, alice, "1500")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)

	games, err := f.games.ListByUser(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestDialog_IdleTextIsIgnored(t *testing.T) {
	f := newDialogFixture()
	ctx := context.Background()

	res, err := f.dialogs.HandleText(ctx, testUser(100, "alice"), "привет")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
}
