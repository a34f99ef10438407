/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package storagetest checks that an undercover.Store behaves the way the controller expects.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/Seednode/undercover/games/undercover"
)

// Run exercises the store returned by open. open is called once per subtest and must
// return an empty store.
func Run(t *testing.T, open func(t *testing.T) undercover.Store) {
	t.Helper()

	t.Run("participants keep join order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, id := range []string{"host", "b", "a", "c"} {
			if _, err := s.UpsertParticipant(ctx, undercover.Participant{ID: id, DisplayName: id, IsHost: id == "host"}); err != nil {
				t.Fatalf("upsert %s: %v", id, err)
			}
		}

		got, err := s.ListParticipants(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"host", "b", "a", "c"}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i, p := range got {
			if p.ID != want[i] {
				t.Errorf("got[%d] = %q, want %q", i, p.ID, want[i])
			}
		}
		if !got[0].IsHost {
			t.Errorf("host flag lost")
		}
	})

	t.Run("upsert keeps role and elimination", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, err := s.UpsertParticipant(ctx, undercover.Participant{ID: "a", DisplayName: "Ann"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.SetSecretRole(ctx, "a", undercover.RoleUndercover); err != nil {
			t.Fatalf("set role: %v", err)
		}
		if err := s.SetEliminated(ctx, "a", true); err != nil {
			t.Fatalf("set eliminated: %v", err)
		}

		p, err := s.UpsertParticipant(ctx, undercover.Participant{ID: "a", DisplayName: "Annie"})
		if err != nil {
			t.Fatalf("re-upsert: %v", err)
		}
		if p.DisplayName != "Annie" {
			t.Errorf("name = %q, want %q", p.DisplayName, "Annie")
		}
		if p.SecretRole != undercover.RoleUndercover || !p.Eliminated {
			t.Errorf("got role %q eliminated %v, want undercover and true", p.SecretRole, p.Eliminated)
		}

		if err := s.ClearRoles(ctx); err != nil {
			t.Fatalf("clear roles: %v", err)
		}
		p, err = s.GetParticipant(ctx, "a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if p.SecretRole != undercover.RoleNone || p.Eliminated {
			t.Errorf("after clear got role %q eliminated %v", p.SecretRole, p.Eliminated)
		}
	})

	t.Run("unknown participant", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, err := s.GetParticipant(ctx, "nobody"); !errors.Is(err, undercover.ErrNotFound) {
			t.Errorf("get: err = %v, want ErrNotFound", err)
		}
		if err := s.RemoveParticipant(ctx, "nobody"); !errors.Is(err, undercover.ErrNotFound) {
			t.Errorf("remove: err = %v, want ErrNotFound", err)
		}
		if err := s.SetSecretRole(ctx, "nobody", undercover.RoleCivilian); !errors.Is(err, undercover.ErrNotFound) {
			t.Errorf("set role: err = %v, want ErrNotFound", err)
		}
		if err := s.SetEliminated(ctx, "nobody", true); !errors.Is(err, undercover.ErrNotFound) {
			t.Errorf("set eliminated: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, err := s.UpsertParticipant(ctx, undercover.Participant{ID: "a", DisplayName: "a"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.RemoveParticipant(ctx, "a"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		got, err := s.ListParticipants(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})

	t.Run("role config", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, ok, err := s.GetRoleConfig(ctx); err != nil || ok {
			t.Fatalf("empty store: ok = %v, err = %v", ok, err)
		}

		want := undercover.RoleConfig{
			CivilianCount:   3,
			UndercoverCount: 1,
			BlankCount:      1,
			CivilianWord:    "coffee",
			UndercoverWord:  "tea",
		}
		if err := s.SetRoleConfig(ctx, want); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, ok, err := s.GetRoleConfig(ctx)
		if err != nil || !ok {
			t.Fatalf("get: ok = %v, err = %v", ok, err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}

		if err := s.ClearRoleConfig(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if _, ok, err := s.GetRoleConfig(ctx); err != nil || ok {
			t.Errorf("after clear: ok = %v, err = %v", ok, err)
		}
	})

	t.Run("session", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, ok, err := s.LoadSession(ctx); err != nil || ok {
			t.Fatalf("empty store: ok = %v, err = %v", ok, err)
		}

		countdown := 2
		want := undercover.SessionState{
			Phase:     undercover.PhasePreparing,
			Countdown: &countdown,
			Round:     4,
			Version:   9,
			Notice:    "hello",
			LastResolution: &undercover.Resolution{
				ID:         "r3:a",
				Round:      3,
				Winners:    []string{"a"},
				Eliminated: "a",
			},
		}
		if err := s.SaveSession(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, ok, err := s.LoadSession(ctx)
		if err != nil || !ok {
			t.Fatalf("load: ok = %v, err = %v", ok, err)
		}
		if got.Phase != want.Phase || got.Round != want.Round || got.Version != want.Version || got.Notice != want.Notice {
			t.Errorf("got %+v, want %+v", got, want)
		}
		if got.Countdown == nil || *got.Countdown != 2 {
			t.Errorf("countdown = %v, want 2", got.Countdown)
		}
		if got.LastResolution == nil || got.LastResolution.ID != "r3:a" || got.LastResolution.Eliminated != "a" {
			t.Errorf("last resolution = %+v", got.LastResolution)
		}

		want.Phase = undercover.PhasePlaying
		want.Countdown = nil
		want.VoteRoundOpen = true
		want.LastResolution = nil
		if err := s.SaveSession(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, _, err = s.LoadSession(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.Countdown != nil || !got.VoteRoundOpen || got.LastResolution != nil {
			t.Errorf("got %+v after overwrite", got)
		}
	})

	t.Run("votes overwrite per voter", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, v := range []undercover.Vote{
			{VoterID: "a", TargetID: "b", Round: 1},
			{VoterID: "b", TargetID: "a", Round: 1},
			{VoterID: "a", TargetID: "c", Round: 2},
		} {
			if err := s.PutVote(ctx, v); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		got, err := s.ListVotes(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].VoterID != "a" || got[0].TargetID != "c" || got[0].Round != 2 {
			t.Errorf("got[0] = %+v, want a->c in round 2", got[0])
		}
		if got[1].VoterID != "b" || got[1].TargetID != "a" {
			t.Errorf("got[1] = %+v, want b->a", got[1])
		}
		if got[0].CastAt.IsZero() {
			t.Errorf("cast time not set")
		}

		if err := s.ClearVotes(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		got, err = s.ListVotes(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d after clear, want 0", len(got))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := s.ListParticipants(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("list: err = %v, want context.Canceled", err)
		}
		if err := s.PutVote(ctx, undercover.Vote{VoterID: "a", TargetID: "b"}); !errors.Is(err, context.Canceled) {
			t.Errorf("put vote: err = %v, want context.Canceled", err)
		}
	})
}
