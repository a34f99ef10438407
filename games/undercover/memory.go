/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. It is the default store and the one
// used by tests.
type MemoryStore struct {
	mu sync.RWMutex

	participants map[string]*Participant
	seq          map[string]uint64
	next         uint64

	config    *RoleConfig
	session   *SessionState
	votes     map[string]Vote
	voteOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]*Participant),
		seq:          make(map[string]uint64),
		votes:        make(map[string]Vote),
	}
}

func (s *MemoryStore) ListParticipants(ctx context.Context) ([]Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})

	return out, nil
}

func (s *MemoryStore) GetParticipant(ctx context.Context, id string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return Participant{}, ErrNotFound
	}

	return *p, nil
}

func (s *MemoryStore) UpsertParticipant(ctx context.Context, p Participant) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := s.participants[p.ID]; ok {
		existing.DisplayName = p.DisplayName
		existing.IsHost = p.IsHost
		existing.UpdatedAt = now
		return *existing, nil
	}

	p.SecretRole = RoleNone
	p.Eliminated = false
	p.JoinedAt = now
	p.UpdatedAt = now
	s.participants[p.ID] = &p
	s.seq[p.ID] = s.next
	s.next++

	return p, nil
}

func (s *MemoryStore) RemoveParticipant(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[id]; !ok {
		return ErrNotFound
	}
	delete(s.participants, id)
	delete(s.seq, id)

	return nil
}

func (s *MemoryStore) update(ctx context.Context, id string, fn func(p *Participant)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now().UTC()

	return nil
}

func (s *MemoryStore) SetSecretRole(ctx context.Context, id string, role Role) error {
	return s.update(ctx, id, func(p *Participant) { p.SecretRole = role })
}

func (s *MemoryStore) SetEliminated(ctx context.Context, id string, eliminated bool) error {
	return s.update(ctx, id, func(p *Participant) { p.Eliminated = eliminated })
}

func (s *MemoryStore) ClearRoles(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, p := range s.participants {
		p.SecretRole = RoleNone
		p.Eliminated = false
		p.UpdatedAt = now
	}

	return nil
}

func (s *MemoryStore) GetRoleConfig(ctx context.Context) (RoleConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return RoleConfig{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return RoleConfig{}, false, nil
	}

	return *s.config, true, nil
}

func (s *MemoryStore) SetRoleConfig(ctx context.Context, cfg RoleConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = &cfg

	return nil
}

func (s *MemoryStore) ClearRoleConfig(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = nil

	return nil
}

func (s *MemoryStore) LoadSession(ctx context.Context) (SessionState, bool, error) {
	if err := ctx.Err(); err != nil {
		return SessionState{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return SessionState{}, false, nil
	}

	return s.session.clone(), true, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, state SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := state.clone()
	s.session = &saved

	return nil
}

func (s *MemoryStore) PutVote(ctx context.Context, v Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v.CastAt.IsZero() {
		v.CastAt = time.Now().UTC()
	}
	if _, ok := s.votes[v.VoterID]; !ok {
		s.voteOrder = append(s.voteOrder, v.VoterID)
	}
	s.votes[v.VoterID] = v

	return nil
}

func (s *MemoryStore) ListVotes(ctx context.Context) ([]Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Vote, 0, len(s.votes))
	for _, id := range s.voteOrder {
		out = append(out, s.votes[id])
	}

	return out, nil
}

func (s *MemoryStore) ClearVotes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.votes = make(map[string]Vote)
	s.voteOrder = nil

	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
