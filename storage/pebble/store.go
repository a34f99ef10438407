/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package pebble stores an undercover session in a Pebble key-value database.
//
// Participants live under "p/<id>" and votes under "v/<voter id>", both as JSON
// carrying an insertion sequence so listings keep join and first-vote order. The role
// configuration and session state are single keys.
package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/cockroachdb/pebble/v2"
)

var (
	participantPrefix = []byte("p/")
	votePrefix        = []byte("v/")
	configKey         = []byte("config")
	sessionKey        = []byte("session")
)

type participantRecord struct {
	undercover.Participant
	Seq uint64 `json:"seq"`
}

type voteRecord struct {
	undercover.Vote
	Seq uint64 `json:"seq"`
}

// Store implements undercover.Store on Pebble.
type Store struct {
	db *pebble.DB

	// mu serializes read-modify-write sequences.
	mu   sync.Mutex
	next uint64
}

var _ undercover.Store = (*Store)(nil)

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}

	s := &Store{db: db}

	for _, prefix := range [][]byte{participantPrefix, votePrefix} {
		err := s.scan(prefix, func(value []byte) error {
			var rec struct {
				Seq uint64 `json:"seq"`
			}
			if err := json.Unmarshal(value, &rec); err != nil {
				return err
			}
			s.next = max(s.next, rec.Seq+1)
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

func key(prefix []byte, id string) []byte {
	return append(append([]byte(nil), prefix...), id...)
}

func (s *Store) scan(prefix []byte, fn func(value []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}

	return it.Error()
}

// get decodes the JSON value at k into v and reports whether it exists.
func (s *Store) get(k []byte, v any) (bool, error) {
	data, closer, err := s.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = closer.Close() }()

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", k, err)
	}

	return true, nil
}

func (s *Store) put(k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}

	return s.db.Set(k, data, pebble.Sync)
}

func (s *Store) participants() ([]participantRecord, error) {
	var out []participantRecord
	err := s.scan(participantPrefix, func(value []byte) error {
		var rec participantRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	return out, nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := s.participants()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	out := make([]undercover.Participant, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Participant)
	}

	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return undercover.Participant{}, err
	}

	var rec participantRecord
	ok, err := s.get(key(participantPrefix, id), &rec)
	if err != nil {
		return undercover.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	if !ok {
		return undercover.Participant{}, undercover.ErrNotFound
	}

	return rec.Participant, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, p undercover.Participant) (undercover.Participant, error) {
	if err := ctx.Err(); err != nil {
		return undercover.Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(participantPrefix, p.ID)
	now := time.Now().UTC()

	var rec participantRecord
	ok, err := s.get(k, &rec)
	if err != nil {
		return undercover.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	if ok {
		rec.DisplayName = p.DisplayName
		rec.IsHost = p.IsHost
		rec.UpdatedAt = now
	} else {
		p.SecretRole = undercover.RoleNone
		p.Eliminated = false
		p.JoinedAt = now
		p.UpdatedAt = now
		rec = participantRecord{Participant: p, Seq: s.next}
		s.next++
	}

	if err := s.put(k, rec); err != nil {
		return undercover.Participant{}, fmt.Errorf("upsert participant: %w", err)
	}

	return rec.Participant, nil
}

func (s *Store) RemoveParticipant(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(participantPrefix, id)

	var rec participantRecord
	ok, err := s.get(k, &rec)
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	if !ok {
		return undercover.ErrNotFound
	}

	if err := s.db.Delete(k, pebble.Sync); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	return nil
}

func (s *Store) update(ctx context.Context, id string, fn func(p *undercover.Participant)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(participantPrefix, id)

	var rec participantRecord
	ok, err := s.get(k, &rec)
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	if !ok {
		return undercover.ErrNotFound
	}

	fn(&rec.Participant)
	rec.UpdatedAt = time.Now().UTC()

	return s.put(k, rec)
}

func (s *Store) SetSecretRole(ctx context.Context, id string, role undercover.Role) error {
	return s.update(ctx, id, func(p *undercover.Participant) { p.SecretRole = role })
}

func (s *Store) SetEliminated(ctx context.Context, id string, eliminated bool) error {
	return s.update(ctx, id, func(p *undercover.Participant) { p.Eliminated = eliminated })
}

func (s *Store) ClearRoles(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.participants()
	if err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}

	batch := s.db.NewBatch()
	defer func() { _ = batch.Close() }()

	now := time.Now().UTC()
	for _, rec := range recs {
		rec.SecretRole = undercover.RoleNone
		rec.Eliminated = false
		rec.UpdatedAt = now

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode participant: %w", err)
		}
		if err := batch.Set(key(participantPrefix, rec.ID), data, nil); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
	}

	return batch.Commit(pebble.Sync)
}

func (s *Store) GetRoleConfig(ctx context.Context) (undercover.RoleConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return undercover.RoleConfig{}, false, err
	}

	var cfg undercover.RoleConfig
	ok, err := s.get(configKey, &cfg)
	if err != nil {
		return undercover.RoleConfig{}, false, fmt.Errorf("get role config: %w", err)
	}

	return cfg, ok, nil
}

func (s *Store) SetRoleConfig(ctx context.Context, cfg undercover.RoleConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.put(configKey, cfg)
}

func (s *Store) ClearRoleConfig(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Delete(configKey, pebble.Sync)
}

func (s *Store) LoadSession(ctx context.Context) (undercover.SessionState, bool, error) {
	if err := ctx.Err(); err != nil {
		return undercover.SessionState{}, false, err
	}

	var state undercover.SessionState
	ok, err := s.get(sessionKey, &state)
	if err != nil {
		return undercover.SessionState{}, false, fmt.Errorf("load session: %w", err)
	}

	return state, ok, nil
}

func (s *Store) SaveSession(ctx context.Context, state undercover.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.put(sessionKey, state)
}

func (s *Store) PutVote(ctx context.Context, v undercover.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v.CastAt.IsZero() {
		v.CastAt = time.Now().UTC()
	}

	k := key(votePrefix, v.VoterID)

	var rec voteRecord
	ok, err := s.get(k, &rec)
	if err != nil {
		return fmt.Errorf("get vote: %w", err)
	}
	if !ok {
		rec.Seq = s.next
		s.next++
	}
	rec.Vote = v

	return s.put(k, rec)
}

func (s *Store) ListVotes(ctx context.Context) ([]undercover.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var recs []voteRecord
	err := s.scan(votePrefix, func(value []byte) error {
		var rec voteRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	out := make([]undercover.Vote, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Vote)
	}

	return out, nil
}

func (s *Store) ClearVotes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.DeleteRange(votePrefix, upperBound(votePrefix), pebble.Sync)
}
