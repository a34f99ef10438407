/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/Seednode/undercover/storage/storagetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "undercover.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) undercover.Store {
		return openTemp(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undercover.db")
	ctx := context.Background()

	for range 2 {
		s, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	var applied int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + migrationTable).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}

	for _, table := range []string{"participants", "role_config", "session", "votes"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undercover.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveSession(ctx, undercover.SessionState{Phase: undercover.PhasePlaying, Round: 3, Version: 7}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, ok, err := s.LoadSession(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok = %v, err = %v", ok, err)
	}
	if got.Phase != undercover.PhasePlaying || got.Round != 3 || got.Version != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, in, want string
	}{
		{"plain", "CREATE TABLE x (a);", "CREATE TABLE x (a);"},
		{"up only", "-- +migrate Up\nCREATE TABLE x (a);", "\nCREATE TABLE x (a);"},
		{"up and down", "-- +migrate Up\nA;\n-- +migrate Down\nB;", "\nA;\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := upSection(tc.in); got != tc.want {
				t.Errorf("upSection() = %q, want %q", got, tc.want)
			}
		})
	}
}
