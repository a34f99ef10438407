/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"context"
	"slices"
	"time"
)

// Role is the secret role dealt to a participant. The zero value means no role.
type Role string

const (
	RoleNone       Role = ""
	RoleCivilian   Role = "civilian"
	RoleUndercover Role = "undercover"
	RoleBlank      Role = "blank"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleCivilian, RoleUndercover, RoleBlank:
		return true
	}
	return false
}

// Phase is the session phase.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePreparing Phase = "preparing"
	PhasePlaying   Phase = "playing"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhasePreparing, PhasePlaying:
		return true
	}
	return false
}

// Participant is one roster entry, host included.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"name"`
	IsHost      bool      `json:"isHost"`
	SecretRole  Role      `json:"gameRole,omitempty"`
	Eliminated  bool      `json:"isEliminated"`
	JoinedAt    time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Eligible reports whether p may vote and be voted for.
func (p Participant) Eligible() bool {
	return !p.IsHost && !p.Eliminated
}

// RoleConfig is the host's setup for the next session.
type RoleConfig struct {
	CivilianCount   int    `json:"civilianCount"`
	UndercoverCount int    `json:"undercoverCount"`
	BlankCount      int    `json:"blankCount"`
	CivilianWord    string `json:"civilianWord"`
	UndercoverWord  string `json:"undercoverWord"`
}

func (c RoleConfig) Total() int {
	return c.CivilianCount + c.UndercoverCount + c.BlankCount
}

// WordFor returns the secret word shown to a holder of role.
func (c RoleConfig) WordFor(role Role) string {
	switch role {
	case RoleCivilian:
		return c.CivilianWord
	case RoleUndercover:
		return c.UndercoverWord
	}
	return ""
}

// Vote is one ledger entry. Round is the round the vote was cast in.
type Vote struct {
	VoterID  string    `json:"voterId"`
	TargetID string    `json:"targetId"`
	Round    uint64    `json:"round"`
	CastAt   time.Time `json:"createdAt"`
}

// Assignment records one dealt role.
type Assignment struct {
	ParticipantID string `json:"id"`
	Role          Role   `json:"role"`
}

// Resolution is the outcome of a completed round as it was applied.
type Resolution struct {
	ID         string    `json:"id"`
	Round      uint64    `json:"round"`
	Winners    []string  `json:"winners"`
	IsTie      bool      `json:"isTie"`
	Eliminated string    `json:"eliminated,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// SessionState is the single live session record.
//
// Countdown is non-nil only while Phase is PhasePreparing. Round increases every time the
// vote ledger is cleared for a new round, and Version increases on every change, so pollers
// can discard responses older than the one they already hold.
type SessionState struct {
	Phase          Phase       `json:"status"`
	Countdown      *int        `json:"countdown"`
	VoteRoundOpen  bool        `json:"voteRoundActive"`
	Round          uint64      `json:"round"`
	Version        uint64      `json:"version"`
	LastResolution *Resolution `json:"lastResolution,omitempty"`
	Notice         string      `json:"notice,omitempty"`
}

func initialState() SessionState {
	return SessionState{Phase: PhaseWaiting}
}

// clone returns a deep copy so callers never share the countdown or resolution.
func (s SessionState) clone() SessionState {
	out := s
	if s.Countdown != nil {
		n := *s.Countdown
		out.Countdown = &n
	}
	if s.LastResolution != nil {
		r := *s.LastResolution
		r.Winners = slices.Clone(r.Winners)
		out.LastResolution = &r
	}
	return out
}

// SessionPatch carries the fields a caller may set directly. Nil fields are left alone.
type SessionPatch struct {
	Phase         *Phase `json:"status,omitempty"`
	VoteRoundOpen *bool  `json:"voteRoundActive,omitempty"`
}

// Store is the persistence the controller drives. Implementations make each call
// independently atomic; nothing spans calls.
type Store interface {
	// ListParticipants returns the roster ordered by join time.
	ListParticipants(ctx context.Context) ([]Participant, error)
	GetParticipant(ctx context.Context, id string) (Participant, error)
	// UpsertParticipant creates p or updates its name and host flag, keeping role,
	// elimination and join time of an existing record.
	UpsertParticipant(ctx context.Context, p Participant) (Participant, error)
	RemoveParticipant(ctx context.Context, id string) error
	SetSecretRole(ctx context.Context, id string, role Role) error
	SetEliminated(ctx context.Context, id string, eliminated bool) error
	// ClearRoles resets SecretRole and Eliminated on every participant.
	ClearRoles(ctx context.Context) error

	GetRoleConfig(ctx context.Context) (RoleConfig, bool, error)
	SetRoleConfig(ctx context.Context, cfg RoleConfig) error
	ClearRoleConfig(ctx context.Context) error

	LoadSession(ctx context.Context) (SessionState, bool, error)
	SaveSession(ctx context.Context, state SessionState) error

	// PutVote replaces any earlier vote from the same voter.
	PutVote(ctx context.Context, v Vote) error
	ListVotes(ctx context.Context) ([]Vote, error)
	ClearVotes(ctx context.Context) error

	Close() error
}
