package service

import "errors"

var (
	// ErrNotOwner is returned when a non-organizer attempts an
	// organizer-only operation.
	ErrNotOwner = errors.New("user is not the game owner")
	// ErrNotMember is returned when a non-participant attempts a
	// participant-only operation.
	ErrNotMember = errors.New("user is not a game participant")
	// ErrTooFewPlayers is returned when distribution is triggered with
	// fewer than two participants.
	ErrTooFewPlayers = errors.New("not enough players to distribute")
	// ErrCannotKickOwner is returned when the organizer tries to remove
	// themselves from their own game.
	ErrCannotKickOwner = errors.New("owner cannot be kicked")
	// ErrNotStarted is returned when assignment data is requested before
	// distribution.
	ErrNotStarted = errors.New("game not started yet")
	// ErrNameTooShort is returned for game names shorter than two characters.
	ErrNameTooShort = errors.New("game name too short")

	// ErrBudgetNotANumber is returned when budget input does not parse.
	ErrBudgetNotANumber = errors.New("budget is not a number")
	// ErrBudgetNotPositive is returned for zero or negative budgets.
	ErrBudgetNotPositive = errors.New("budget must be positive")
	// ErrBudgetTooLarge is returned for budgets above the configured cap.
	ErrBudgetTooLarge = errors.New("budget exceeds maximum")

	// ErrWishTooLong is returned for wish text above the configured cap.
	ErrWishTooLong = errors.New("wish text too long")
)
