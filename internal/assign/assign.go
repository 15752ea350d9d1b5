// Package assign implements the Secret Santa draw: a random cyclic
// permutation of the participants in which everyone gives exactly one gift,
// receives exactly one gift, and never draws themselves.
package assign

import (
	"errors"
	"math/rand"
)

// MinParticipants is the smallest group a draw can be run for.
const MinParticipants = 2

// ErrTooFewParticipants is returned when fewer than MinParticipants ids are
// given.
var ErrTooFewParticipants = errors.New("at least 2 participants required")

// Cycle shuffles the participant ids uniformly and pairs position i with
// position (i+1) mod N, producing a single N-cycle. Because N >= 2 no
// participant can be assigned to themselves. Note this samples only
// single-cycle derangements, not all derangements; "no one draws
// themselves" is the only guarantee callers rely on.
func Cycle(participants []int64) (map[int64]int64, error) {
	if len(participants) < MinParticipants {
		return nil, ErrTooFewParticipants
	}

	order := make([]int64, len(participants))
	copy(order, participants)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	pairs := make(map[int64]int64, len(order))
	for i, giver := range order {
		pairs[giver] = order[(i+1)%len(order)]
	}
	return pairs, nil
}
