/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Validate checks cfg against a roster of players non-host participants.
// A negative players value skips the roster check.
func (c RoleConfig) Validate(players int) error {
	const op = "validate role config"

	if c.CivilianCount < 0 || c.UndercoverCount < 0 || c.BlankCount < 0 {
		return newError(op, ErrConfiguration, "role counts must not be negative")
	}
	if players >= 0 && c.Total() > players {
		return newError(op, ErrConfiguration, "%d roles configured but only %d players joined", c.Total(), players)
	}

	return nil
}

// newRand returns a ChaCha8 generator seeded from crypto/rand.
func newRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the runtime source.
		binary.LittleEndian.PutUint64(seed[:], rand.Uint64())
		binary.LittleEndian.PutUint64(seed[8:], rand.Uint64())
	}

	return rand.New(rand.NewChaCha8(seed))
}

// Assign deals the roles in cfg to players. players must be the non-host roster in join
// order; it is shuffled in place with rng. Civilians are dealt first, then undercover,
// then blank, so every ordering of players is equally likely to receive any role.
// Players past cfg.Total() receive nothing and are not listed.
func Assign(players []Participant, cfg RoleConfig, rng *rand.Rand) ([]Assignment, error) {
	const op = "assign roles"

	if len(players) == 0 {
		return nil, newError(op, ErrNoParticipants, "no players have joined")
	}
	if err := cfg.Validate(len(players)); err != nil {
		return nil, err
	}

	rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	deck := make([]Role, 0, cfg.Total())
	for range cfg.CivilianCount {
		deck = append(deck, RoleCivilian)
	}
	for range cfg.UndercoverCount {
		deck = append(deck, RoleUndercover)
	}
	for range cfg.BlankCount {
		deck = append(deck, RoleBlank)
	}

	assignments := make([]Assignment, 0, len(deck))
	for i, role := range deck {
		assignments = append(assignments, Assignment{
			ParticipantID: players[i].ID,
			Role:          role,
		})
	}

	return assignments, nil
}
