package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secret-santa-bot/internal/config"
	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/pkg/lock"
	"secret-santa-bot/internal/repository"
)

func testSantaConfig() config.SantaConfig {
	return config.SantaConfig{
		MaxBudget:      1_000_000,
		MaxWishLen:     500,
		MaxGamesListed: 10,
	}
}

func newTestGameService() *GameService {
	return NewGameService(
		repository.NewMemoryGameStore(),
		repository.NewMemoryUserStore(),
		repository.NewMemoryWishStore(),
		lock.New(),
		testSantaConfig(),
	)
}

func testUser(id int64, username string) *model.User {
	return &model.User{ID: id, Username: username, FullName: username}
}

func TestGameService_Create(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Winter Gift", 1500)
	require.NoError(t, err)
	assert.Len(t, game.ID, 8)
	assert.Equal(t, "Winter Gift", game.Name)
	assert.Equal(t, float64(1500), game.Budget)
	assert.Equal(t, int64(100), game.OwnerID)
	assert.Equal(t, []int64{100}, game.Players)
	assert.False(t, game.Started)

	got, err := svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, got.ID)
}

func TestGameService_CreateValidation(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()
	owner := testUser(100, "alice")

	tests := []struct {
		name    string
		game    string
		budget  float64
		wantErr error
	}{
		{name: "name too short", game: "X", budget: 100, wantErr: ErrNameTooShort},
		{name: "whitespace name", game: "  a  ", budget: 100, wantErr: ErrNameTooShort},
		{name: "zero budget", game: "Party", budget: 0, wantErr: ErrBudgetNotPositive},
		{name: "negative budget", game: "Party", budget: -5, wantErr: ErrBudgetNotPositive},
		{name: "budget above cap", game: "Party", budget: 2_000_000, wantErr: ErrBudgetTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, tt.game, tt.budget)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Two-rune names are the minimum.
	_, err := svc.Create(ctx, owner, "ЁЖ", 100)
	require.NoError(t, err)
}

func TestGameService_Join(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)

	joined, err := svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, joined.Players)

	// Joining twice reports membership, the roster is unchanged.
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	assert.ErrorIs(t, err, repository.ErrAlreadyMember)

	got, err := svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, got.Players)

	// Unknown code.
	_, err = svc.Join(ctx, "nosuchid", testUser(300, "carol"))
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestGameService_JoinAfterDistribution(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)

	_, err = svc.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)

	_, err = svc.Join(ctx, game.ID, testUser(300, "carol"))
	assert.ErrorIs(t, err, repository.ErrGameStarted)
}

func TestGameService_Kick(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)

	// Only the owner kicks.
	err = svc.Kick(ctx, game.ID, 200, 100)
	assert.ErrorIs(t, err, ErrNotOwner)

	// The owner is not kickable.
	err = svc.Kick(ctx, game.ID, 100, 100)
	assert.ErrorIs(t, err, ErrCannotKickOwner)

	require.NoError(t, svc.Kick(ctx, game.ID, 100, 200))

	got, err := svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, got.Players)

	// Kicking again reports the absence.
	err = svc.Kick(ctx, game.ID, 100, 200)
	assert.ErrorIs(t, err, repository.ErrNotMember)
}

func TestGameService_SetBudget(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)

	// Non-owner change is rejected and nothing moves.
	err = svc.SetBudget(ctx, game.ID, 200, 900)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), got.Budget)

	require.NoError(t, svc.SetBudget(ctx, game.ID, 100, 900))
	got, err = svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(900), got.Budget)

	assert.ErrorIs(t, svc.SetBudget(ctx, game.ID, 100, 0), ErrBudgetNotPositive)
	assert.ErrorIs(t, svc.SetBudget(ctx, game.ID, 100, 2_000_000), ErrBudgetTooLarge)
}

func TestGameService_Distribute(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(300, "carol"))
	require.NoError(t, err)

	// Receiver wishes surface in the notices.
	require.NoError(t, svc.SaveWish(ctx, game.ID, 200, "книга", "носки"))

	result, err := svc.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)
	assert.True(t, result.Game.Started)
	require.Len(t, result.Notices, 3)

	assignments := result.Game.Assignments
	require.Len(t, assignments, 3)

	// Every player gives and receives exactly once, never to themselves.
	received := make(map[int64]int)
	for giver, receiver := range assignments {
		assert.NotEqual(t, giver, receiver)
		assert.True(t, result.Game.HasPlayer(giver))
		assert.True(t, result.Game.HasPlayer(receiver))
		received[receiver]++
	}
	for _, id := range result.Game.Players {
		assert.Equal(t, 1, received[id])
	}

	for _, notice := range result.Notices {
		assert.Equal(t, assignments[notice.GiverID], notice.Receiver.ID)
		if notice.Receiver.ID == 200 {
			assert.Equal(t, "книга", notice.Wanted)
			assert.Equal(t, "носки", notice.NotWanted)
		}
	}
}

func TestGameService_DistributeGuards(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)

	// Owner alone is not enough.
	_, err = svc.Distribute(ctx, game.ID, 100)
	assert.ErrorIs(t, err, ErrTooFewPlayers)

	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)

	// Only the owner triggers distribution.
	_, err = svc.Distribute(ctx, game.ID, 200)
	assert.ErrorIs(t, err, ErrNotOwner)

	first, err := svc.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)

	// A repeat trigger fails and the stored assignments do not change.
	_, err = svc.Distribute(ctx, game.ID, 100)
	assert.ErrorIs(t, err, repository.ErrGameStarted)

	got, err := svc.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Game.Assignments, got.Assignments)
}

func TestGameService_Delete(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(300, "carol"))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, game.ID, 200)
	assert.ErrorIs(t, err, ErrNotOwner)

	toNotify, err := svc.Delete(ctx, game.ID, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{200, 300}, toNotify)

	_, err = svc.Get(ctx, game.ID)
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestGameService_ListByUser(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	alice := testUser(100, "alice")
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, alice, "Party", 500)
		require.NoError(t, err)
	}

	games, err := svc.ListByUser(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, games, 3)

	games, err = svc.ListByUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestGameService_Receiver(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.ID, testUser(200, "bob"))
	require.NoError(t, err)

	// Before distribution there is nothing to show.
	_, err = svc.Receiver(ctx, game.ID, 100)
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = svc.Distribute(ctx, game.ID, 100)
	require.NoError(t, err)

	notice, err := svc.Receiver(ctx, game.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(200), notice.Receiver.ID)

	// Outsiders see nothing.
	_, err = svc.Receiver(ctx, game.ID, 999)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGameService_SaveWish(t *testing.T) {
	svc := newTestGameService()
	ctx := context.Background()

	game, err := svc.Create(ctx, testUser(100, "alice"), "Party", 500)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SaveWish(ctx, game.ID, 999, "x", ""), ErrNotMember)

	long := make([]rune, 501)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, svc.SaveWish(ctx, game.ID, 100, string(long), ""), ErrWishTooLong)

	require.NoError(t, svc.SaveWish(ctx, game.ID, 100, "книга", ""))
}
