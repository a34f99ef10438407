/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sqlite stores an undercover session in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/Seednode/undercover/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store implements undercover.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ undercover.Store = (*Store)(nil)

// Open opens the database at path, creating and migrating it as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const participantColumns = `id, name, is_host, role, eliminated, joined_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (undercover.Participant, error) {
	var (
		p                  undercover.Participant
		role               string
		isHost, eliminated int64
		joined, updated    int64
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &isHost, &role, &eliminated, &joined, &updated); err != nil {
		return undercover.Participant{}, err
	}

	p.IsHost = isHost != 0
	p.SecretRole = undercover.Role(role)
	p.Eliminated = eliminated != 0
	p.JoinedAt = fromMillis(joined)
	p.UpdatedAt = fromMillis(updated)

	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := []undercover.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return undercover.Participant{}, err
	}

	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return undercover.Participant{}, undercover.ErrNotFound
	}
	if err != nil {
		return undercover.Participant{}, fmt.Errorf("get participant: %w", err)
	}

	return p, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, p undercover.Participant) (undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return undercover.Participant{}, err
	}

	now := toMillis(time.Now())
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (id, name, is_host, role, eliminated, joined_at, updated_at)
		 VALUES (?, ?, ?, '', 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    is_host = excluded.is_host,
		    updated_at = excluded.updated_at`,
		p.ID, p.DisplayName, boolToInt(p.IsHost), now, now,
	); err != nil {
		return undercover.Participant{}, fmt.Errorf("upsert participant: %w", err)
	}

	return s.GetParticipant(ctx, p.ID)
}

func (s *Store) RemoveParticipant(ctx context.Context, id string) error {
	return s.execOne(ctx, "remove participant", `DELETE FROM participants WHERE id = ?`, id)
}

func (s *Store) SetSecretRole(ctx context.Context, id string, role undercover.Role) error {
	return s.execOne(ctx, "set role",
		`UPDATE participants SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), toMillis(time.Now()), id)
}

func (s *Store) SetEliminated(ctx context.Context, id string, eliminated bool) error {
	return s.execOne(ctx, "set eliminated",
		`UPDATE participants SET eliminated = ?, updated_at = ? WHERE id = ?`,
		boolToInt(eliminated), toMillis(time.Now()), id)
}

// execOne runs a statement that must touch exactly one participant.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return undercover.ErrNotFound
	}

	return nil
}

func (s *Store) ClearRoles(ctx context.Context) error {
	return s.exec(ctx, "clear roles",
		`UPDATE participants SET role = '', eliminated = 0, updated_at = ?`, toMillis(time.Now()))
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) GetRoleConfig(ctx context.Context) (undercover.RoleConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return undercover.RoleConfig{}, false, err
	}

	var cfg undercover.RoleConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT civilian_count, undercover_count, blank_count, civilian_word, undercover_word
		 FROM role_config WHERE id = 1`,
	).Scan(&cfg.CivilianCount, &cfg.UndercoverCount, &cfg.BlankCount, &cfg.CivilianWord, &cfg.UndercoverWord)
	if errors.Is(err, sql.ErrNoRows) {
		return undercover.RoleConfig{}, false, nil
	}
	if err != nil {
		return undercover.RoleConfig{}, false, fmt.Errorf("get role config: %w", err)
	}

	return cfg, true, nil
}

func (s *Store) SetRoleConfig(ctx context.Context, cfg undercover.RoleConfig) error {
	return s.exec(ctx, "set role config",
		`INSERT INTO role_config (id, civilian_count, undercover_count, blank_count, civilian_word, undercover_word, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    civilian_count = excluded.civilian_count,
		    undercover_count = excluded.undercover_count,
		    blank_count = excluded.blank_count,
		    civilian_word = excluded.civilian_word,
		    undercover_word = excluded.undercover_word,
		    updated_at = excluded.updated_at`,
		cfg.CivilianCount, cfg.UndercoverCount, cfg.BlankCount,
		cfg.CivilianWord, cfg.UndercoverWord, toMillis(time.Now()))
}

func (s *Store) ClearRoleConfig(ctx context.Context) error {
	return s.exec(ctx, "clear role config", `DELETE FROM role_config`)
}

func (s *Store) LoadSession(ctx context.Context) (undercover.SessionState, bool, error) {
	if err := ctx.Err(); err != nil {
		return undercover.SessionState{}, false, err
	}

	var (
		state      undercover.SessionState
		phase      string
		countdown  sql.NullInt64
		open       int64
		round, ver int64
		resolution []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT phase, countdown, vote_round_open, round, version, last_resolution_json, notice
		 FROM session WHERE id = 1`,
	).Scan(&phase, &countdown, &open, &round, &ver, &resolution, &state.Notice)
	if errors.Is(err, sql.ErrNoRows) {
		return undercover.SessionState{}, false, nil
	}
	if err != nil {
		return undercover.SessionState{}, false, fmt.Errorf("load session: %w", err)
	}

	state.Phase = undercover.Phase(phase)
	if countdown.Valid {
		n := int(countdown.Int64)
		state.Countdown = &n
	}
	state.VoteRoundOpen = open != 0
	state.Round = uint64(round)
	state.Version = uint64(ver)
	if len(resolution) > 0 {
		var res undercover.Resolution
		if err := json.Unmarshal(resolution, &res); err != nil {
			return undercover.SessionState{}, false, fmt.Errorf("decode last resolution: %w", err)
		}
		state.LastResolution = &res
	}

	return state, true, nil
}

func (s *Store) SaveSession(ctx context.Context, state undercover.SessionState) error {
	var countdown sql.NullInt64
	if state.Countdown != nil {
		countdown = sql.NullInt64{Int64: int64(*state.Countdown), Valid: true}
	}

	var resolution []byte
	if state.LastResolution != nil {
		var err error
		resolution, err = json.Marshal(state.LastResolution)
		if err != nil {
			return fmt.Errorf("encode last resolution: %w", err)
		}
	}

	return s.exec(ctx, "save session",
		`INSERT INTO session (id, phase, countdown, vote_round_open, round, version, last_resolution_json, notice, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    phase = excluded.phase,
		    countdown = excluded.countdown,
		    vote_round_open = excluded.vote_round_open,
		    round = excluded.round,
		    version = excluded.version,
		    last_resolution_json = excluded.last_resolution_json,
		    notice = excluded.notice,
		    updated_at = excluded.updated_at`,
		string(state.Phase), countdown, boolToInt(state.VoteRoundOpen),
		int64(state.Round), int64(state.Version), resolution, state.Notice, toMillis(time.Now()))
}

func (s *Store) PutVote(ctx context.Context, v undercover.Vote) error {
	if v.CastAt.IsZero() {
		v.CastAt = time.Now()
	}

	return s.exec(ctx, "put vote",
		`INSERT INTO votes (voter_id, target_id, round, cast_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(voter_id) DO UPDATE SET
		    target_id = excluded.target_id,
		    round = excluded.round,
		    cast_at = excluded.cast_at`,
		v.VoterID, v.TargetID, int64(v.Round), toMillis(v.CastAt))
}

func (s *Store) ListVotes(ctx context.Context) ([]undercover.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT voter_id, target_id, round, cast_at FROM votes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	out := []undercover.Vote{}
	for rows.Next() {
		var (
			v             undercover.Vote
			round, castAt int64
		)
		if err := rows.Scan(&v.VoterID, &v.TargetID, &round, &castAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Round = uint64(round)
		v.CastAt = fromMillis(castAt)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return out, nil
}

func (s *Store) ClearVotes(ctx context.Context) error {
	return s.exec(ctx, "clear votes", `DELETE FROM votes`)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
