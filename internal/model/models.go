// Package model defines the data models for the Secret Santa bot.
package model

import "time"

// Game represents one Secret Santa exchange: a named event with a gift
// budget, an owner, an ordered participant list and, once the draw has
// run, a giver-to-receiver assignment map.
type Game struct {
	ID          string
	Name        string
	Budget      float64
	OwnerID     int64
	Players     []int64 // join order, owner first
	Started     bool
	Assignments map[int64]int64 // giver -> receiver, nil until the draw runs
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPlayer reports whether userID participates in the game.
func (g *Game) HasPlayer(userID int64) bool {
	for _, id := range g.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// PlayerCount returns the number of participants.
func (g *Game) PlayerCount() int {
	return len(g.Players)
}

// User represents a Telegram user known to the bot. Profile fields are
// refreshed on every interaction so assignment notices can name receivers
// without Bot API lookups.
type User struct {
	ID        int64
	Username  string
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return "Анонимный Санта"
	}
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Анонимный Санта"
}

// StateKind tags the conversational state a user is currently in.
type StateKind string

const (
	StateIdle                  StateKind = "idle"
	StateAwaitingGameName      StateKind = "awaiting_game_name"
	StateAwaitingGameBudget    StateKind = "awaiting_game_budget"
	StateAwaitingJoinCode      StateKind = "awaiting_join_code"
	StateAwaitingNewBudget     StateKind = "awaiting_new_budget"
	StateAwaitingWishWanted    StateKind = "awaiting_wish_wanted"
	StateAwaitingWishNotWanted StateKind = "awaiting_wish_not_wanted"
)

// SessionState is the per-user dialog state plus the fields staged while a
// multi-step dialog is in flight. Which fields are meaningful depends on
// Kind: GameID is set for the budget-edit and wish dialogs, StagedName only
// between the name and budget steps of game creation, StagedWanted only
// between the two wish steps. A missing session record means idle.
type SessionState struct {
	Kind         StateKind `json:"kind"`
	GameID       string    `json:"game_id,omitempty"`
	StagedName   string    `json:"staged_name,omitempty"`
	StagedWanted string    `json:"staged_wanted,omitempty"`
}

// Idle returns the zero dialog state.
func Idle() SessionState {
	return SessionState{Kind: StateIdle}
}

// IsIdle reports whether the user is in no dialog. The zero value counts
// as idle so absent records loaded from storage behave correctly.
func (s SessionState) IsIdle() bool {
	return s.Kind == StateIdle || s.Kind == ""
}

// Wish holds what a participant wants (and does not want) to receive in a
// specific game. Either field may be empty. Shown only to the assigned
// giver.
type Wish struct {
	GameID    string
	UserID    int64
	Wanted    string
	NotWanted string
	UpdatedAt time.Time
}
