/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package pebble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/Seednode/undercover/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) undercover.Store {
		s, err := Open(filepath.Join(t.TempDir(), "db"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() {
			if err := s.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, id := range []string{"z", "y"} {
		if _, err := s.UpsertParticipant(ctx, undercover.Participant{ID: id, DisplayName: id}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.UpsertParticipant(ctx, undercover.Participant{ID: "a", DisplayName: "a"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.ListParticipants(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"z", "y", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, p.ID, want[i])
		}
	}
}

func TestUpperBound(t *testing.T) {
	t.Parallel()

	if got := string(upperBound([]byte("v/"))); got != "v0" {
		t.Errorf("upperBound(v/) = %q, want %q", got, "v0")
	}
}
