/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultHostID    = "host"
	DefaultCountdown = 3
	DefaultInterval  = time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithHostID sets the reserved identifier of the host.
func WithHostID(id string) Option {
	return func(c *Controller) {
		if id = strings.TrimSpace(id); id != "" {
			c.hostID = id
		}
	}
}

// WithCountdown sets the number of ticks between start and role assignment,
// and the time between ticks.
func WithCountdown(ticks int, interval time.Duration) Option {
	return func(c *Controller) {
		if ticks > 0 {
			c.countdownFrom = ticks
		}
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithClearVotesOnReopen makes reopening a closed vote round discard the votes
// already cast in it. By default a closed round keeps its votes, so closing and
// reopening acts as pause and resume.
func WithClearVotesOnReopen(enabled bool) Option {
	return func(c *Controller) {
		c.clearOnReopen = enabled
	}
}

// WithRand replaces the shuffle source. Tests use it for reproducible deals.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// Controller owns the session: its phase, countdown, vote rounds and role configuration.
// All methods are safe for concurrent use by any number of polling clients.
type Controller struct {
	store         Store
	log           zerolog.Logger
	hostID        string
	countdownFrom int
	interval      time.Duration
	clearOnReopen bool

	mu     sync.Mutex
	rng    *rand.Rand
	state  SessionState
	config *RoleConfig

	// applied is the resolution most recently written for state.Round, kept until
	// the round counter moves past it.
	applied *Resolution

	// gen identifies the live countdown; ticks from an older generation are dropped.
	gen         uint64
	assignedGen uint64
	cancel      context.CancelFunc

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

// New loads the session from store. A session that was counting down when the
// process stopped goes back to waiting, since its timer did not survive.
func New(ctx context.Context, store Store, opts ...Option) (*Controller, error) {
	c := &Controller{
		store:         store,
		log:           zerolog.Nop(),
		hostID:        DefaultHostID,
		countdownFrom: DefaultCountdown,
		interval:      DefaultInterval,
		rng:           newRand(),
		state:         initialState(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.base, c.shutdown = context.WithCancel(context.Background())

	state, ok, err := store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if ok {
		c.state = state
	}

	cfg, ok, err := store.GetRoleConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load role config: %w", err)
	}
	if ok {
		c.config = &cfg
	}

	if c.state.Phase == PhasePreparing {
		next := c.state.clone()
		next.Phase = PhaseWaiting
		next.Countdown = nil
		next.Notice = "the countdown was interrupted; start the game again"
		if err := c.commitLocked(ctx, next); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Close stops any running countdown and waits for it to exit.
func (c *Controller) Close() {
	c.shutdown()
	c.wg.Wait()
}

func (c *Controller) HostID() string {
	return c.hostID
}

// commitLocked persists next as the new state. On failure the in-memory state is unchanged.
func (c *Controller) commitLocked(ctx context.Context, next SessionState) error {
	next.Version = c.state.Version + 1

	if err := c.store.SaveSession(ctx, next); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.state = next

	return nil
}

func (c *Controller) SessionState() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

func (c *Controller) Roster(ctx context.Context) ([]Participant, error) {
	players, err := c.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	return players, nil
}

func (c *Controller) nonHostLocked(ctx context.Context) ([]Participant, error) {
	roster, err := c.Roster(ctx)
	if err != nil {
		return nil, err
	}

	players := make([]Participant, 0, len(roster))
	for _, p := range roster {
		if !p.IsHost {
			players = append(players, p)
		}
	}

	return players, nil
}

// UpsertParticipant adds a participant or renames an existing one. Only the reserved
// host id may carry the host flag, and it always does. New participants may only join
// while no game is running.
func (c *Controller) UpsertParticipant(ctx context.Context, id, name string, isHost bool) (Participant, error) {
	const op = "upsert participant"

	id = strings.TrimSpace(id)
	if id == "" {
		return Participant{}, newError(op, ErrInvalidArgument, "an id is required")
	}
	name = cleanText(name, maxNameLength)
	if name == "" {
		return Participant{}, newError(op, ErrInvalidArgument, "a name is required")
	}
	if isHost && id != c.hostID {
		return Participant{}, newError(op, ErrPrecondition, "only the reserved host id may join as host")
	}
	isHost = id == c.hostID

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseWaiting && !isHost {
		_, err := c.store.GetParticipant(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Participant{}, newError(op, ErrPrecondition, "a game is in progress; wait for it to end before joining")
		}
		if err != nil {
			return Participant{}, fmt.Errorf("get participant: %w", err)
		}
	}

	p, err := c.store.UpsertParticipant(ctx, Participant{
		ID:          id,
		DisplayName: name,
		IsHost:      isHost,
	})
	if err != nil {
		return Participant{}, fmt.Errorf("upsert participant: %w", err)
	}

	c.log.Debug().Str("participant", p.ID).Str("name", p.DisplayName).Bool("host", p.IsHost).Msg("participant joined")

	return p, nil
}

// RemoveParticipant deletes a participant. The host cannot be removed.
func (c *Controller) RemoveParticipant(ctx context.Context, id string) error {
	const op = "remove participant"

	if id == c.hostID {
		return newError(op, ErrPrecondition, "the host cannot be removed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveParticipant(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(op, ErrNotFound, "no participant with id %q", id)
		}
		return fmt.Errorf("remove participant: %w", err)
	}

	c.log.Info().Str("participant", id).Msg("participant removed")

	return nil
}

// RoleConfig returns the saved configuration, if any.
func (c *Controller) RoleConfig() (RoleConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config == nil {
		return RoleConfig{}, false
	}

	return *c.config, true
}

// SetRoleConfig saves cfg for the next start. Counts are checked against the
// current roster; they are checked again when the game starts.
func (c *Controller) SetRoleConfig(ctx context.Context, cfg RoleConfig) (RoleConfig, error) {
	const op = "set role config"

	cfg.CivilianWord = cleanText(cfg.CivilianWord, maxWordLength)
	cfg.UndercoverWord = cleanText(cfg.UndercoverWord, maxWordLength)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseWaiting {
		return RoleConfig{}, newError(op, ErrPrecondition, "settings cannot change while a game is running")
	}

	players, err := c.nonHostLocked(ctx)
	if err != nil {
		return RoleConfig{}, err
	}
	if err := cfg.Validate(len(players)); err != nil {
		return RoleConfig{}, err
	}

	if err := c.store.SetRoleConfig(ctx, cfg); err != nil {
		return RoleConfig{}, fmt.Errorf("save role config: %w", err)
	}
	c.config = &cfg

	c.log.Info().
		Int("civilian", cfg.CivilianCount).
		Int("undercover", cfg.UndercoverCount).
		Int("blank", cfg.BlankCount).
		Msg("role config saved")

	return cfg, nil
}

func (c *Controller) ClearRoleConfig(ctx context.Context) error {
	const op = "clear role config"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseWaiting {
		return newError(op, ErrPrecondition, "settings cannot change while a game is running")
	}
	if err := c.store.ClearRoleConfig(ctx); err != nil {
		return fmt.Errorf("clear role config: %w", err)
	}
	c.config = nil

	return nil
}

// AssignRoles deals cfg to the current roster outside of the countdown. It is
// only allowed while waiting; during a game roles are dealt by the countdown alone.
func (c *Controller) AssignRoles(ctx context.Context, cfg RoleConfig) ([]Assignment, error) {
	const op = "assign roles"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseWaiting {
		return nil, newError(op, ErrPrecondition, "roles are dealt by the countdown once a game starts")
	}

	return c.assignLocked(ctx, cfg)
}

func (c *Controller) assignLocked(ctx context.Context, cfg RoleConfig) ([]Assignment, error) {
	players, err := c.nonHostLocked(ctx)
	if err != nil {
		return nil, err
	}

	assignments, err := Assign(players, cfg, c.rng)
	if err != nil {
		return nil, err
	}

	// Players past the dealt total must not keep a role from an earlier deal.
	if err := c.store.ClearRoles(ctx); err != nil {
		return nil, fmt.Errorf("clear roles: %w", err)
	}

	for _, a := range assignments {
		if err := c.store.SetSecretRole(ctx, a.ParticipantID, a.Role); err != nil {
			return nil, fmt.Errorf("set role for %s: %w", a.ParticipantID, err)
		}
	}

	c.log.Info().Int("players", len(players)).Int("dealt", len(assignments)).Msg("roles assigned")

	return assignments, nil
}

// ClearAllRoles removes every role and elimination mark. Only allowed while waiting.
func (c *Controller) ClearAllRoles(ctx context.Context) error {
	const op = "clear roles"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseWaiting {
		return newError(op, ErrPrecondition, "roles cannot be cleared while a game is running; end it instead")
	}
	if err := c.store.ClearRoles(ctx); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}

	return nil
}

// Start moves from waiting to preparing and begins the countdown. It fails without
// changing anything when there is no role configuration or it no longer fits the roster.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.startLocked(ctx)
}

func (c *Controller) startLocked(ctx context.Context) error {
	const op = "start"

	if c.state.Phase != PhaseWaiting {
		return newError(op, ErrPrecondition, "a game is already %s", c.state.Phase)
	}
	if c.config == nil {
		return newError(op, ErrPrecondition, "save a role configuration before starting")
	}

	players, err := c.nonHostLocked(ctx)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return precondition(op, newError(op, ErrNoParticipants, "no players have joined"))
	}
	if err := c.config.Validate(len(players)); err != nil {
		return precondition(op, err)
	}

	if err := c.store.ClearVotes(ctx); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}
	if err := c.store.ClearRoles(ctx); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}

	count := c.countdownFrom
	next := c.state.clone()
	next.Phase = PhasePreparing
	next.Countdown = &count
	next.VoteRoundOpen = false
	next.Round++
	next.LastResolution = nil
	next.Notice = ""
	if err := c.commitLocked(ctx, next); err != nil {
		return err
	}

	c.applied = nil
	c.gen++
	runCtx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	c.wg.Add(1)
	go c.runCountdown(runCtx, c.gen)

	c.log.Info().Int("players", len(players)).Int("countdown", count).Msg("game starting")

	return nil
}

func (c *Controller) runCountdown(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx, gen) {
				return
			}
		}
	}
}

// tick advances the countdown of generation gen by one and reports whether the
// countdown is finished. When it reaches zero roles are dealt, once, and the game
// starts playing.
func (c *Controller) tick(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state.Phase != PhasePreparing || c.state.Countdown == nil {
		return true
	}

	remaining := *c.state.Countdown - 1
	if remaining > 0 {
		next := c.state.clone()
		next.Countdown = &remaining
		if err := c.commitLocked(ctx, next); err != nil {
			c.log.Error().Err(err).Msg("countdown tick")
		}
		return false
	}

	if c.assignedGen != gen {
		if _, err := c.assignLocked(ctx, *c.config); err != nil {
			c.log.Warn().Err(err).Msg("role assignment failed; returning to waiting")
			if clearErr := c.store.ClearRoles(ctx); clearErr != nil {
				c.log.Error().Err(clearErr).Msg("clear partial roles")
			}

			next := c.state.clone()
			next.Phase = PhaseWaiting
			next.Countdown = nil
			next.Notice = Message(err)
			if err := c.commitLocked(ctx, next); err != nil {
				c.log.Error().Err(err).Msg("abort countdown")
				return false
			}
			return true
		}
		c.assignedGen = gen
	}

	next := c.state.clone()
	next.Phase = PhasePlaying
	next.Countdown = nil
	next.VoteRoundOpen = false
	if err := c.commitLocked(ctx, next); err != nil {
		// Roles are already dealt; the next tick retries the transition only.
		c.log.Error().Err(err).Msg("enter playing")
		return false
	}

	c.log.Info().Uint64("round", next.Round).Msg("game playing")

	return true
}

// End returns a preparing or playing session to waiting, wiping roles, eliminations,
// the role configuration and the vote ledger. A running countdown is cancelled.
func (c *Controller) End(ctx context.Context) error {
	const op = "end"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == PhaseWaiting {
		return newError(op, ErrPrecondition, "no game is running")
	}

	return c.resetLocked(ctx, false)
}

// Reset is End from any phase, and also removes every participant except the host.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resetLocked(ctx, true)
}

func (c *Controller) resetLocked(ctx context.Context, removePlayers bool) error {
	if removePlayers {
		players, err := c.nonHostLocked(ctx)
		if err != nil {
			return err
		}
		for _, p := range players {
			if err := c.store.RemoveParticipant(ctx, p.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("remove participant %s: %w", p.ID, err)
			}
		}
	}

	if err := c.store.ClearRoles(ctx); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if err := c.store.ClearRoleConfig(ctx); err != nil {
		return fmt.Errorf("clear role config: %w", err)
	}
	if err := c.store.ClearVotes(ctx); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}

	c.stopCountdownLocked()
	c.config = nil
	c.applied = nil

	next := c.state.clone()
	next.Phase = PhaseWaiting
	next.Countdown = nil
	next.VoteRoundOpen = false
	next.Round++
	next.LastResolution = nil
	next.Notice = ""
	if err := c.commitLocked(ctx, next); err != nil {
		return err
	}

	c.log.Info().Bool("players_removed", removePlayers).Msg("game ended")

	return nil
}

func (c *Controller) stopCountdownLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// ToggleVoteRound opens a closed vote round or closes an open one.
func (c *Controller) ToggleVoteRound(ctx context.Context) (SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.setVoteRoundLocked(ctx, !c.state.VoteRoundOpen); err != nil {
		return SessionState{}, err
	}

	return c.state.clone(), nil
}

func (c *Controller) setVoteRoundLocked(ctx context.Context, open bool) error {
	const op = "set vote round"

	if c.state.Phase != PhasePlaying {
		return newError(op, ErrPrecondition, "voting is only possible while playing")
	}
	if c.state.VoteRoundOpen == open {
		return nil
	}

	next := c.state.clone()
	next.VoteRoundOpen = open
	if open && c.clearOnReopen {
		if err := c.store.ClearVotes(ctx); err != nil {
			return fmt.Errorf("clear votes: %w", err)
		}
		next.Round++
	}
	if err := c.commitLocked(ctx, next); err != nil {
		return err
	}

	c.log.Info().Bool("open", open).Uint64("round", next.Round).Msg("vote round toggled")

	return nil
}

// SetSessionState applies a partial update. A phase change is carried out as the
// matching transition: preparing starts the game and waiting ends it. Playing can
// only be reached through the countdown.
func (c *Controller) SetSessionState(ctx context.Context, patch SessionPatch) (SessionState, error) {
	const op = "set session state"

	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.state.Phase
	if patch.Phase != nil {
		target = *patch.Phase
		if !target.Valid() {
			return SessionState{}, newError(op, ErrInvalidArgument, "unknown phase %q", target)
		}
	}
	if patch.VoteRoundOpen != nil && *patch.VoteRoundOpen && target != PhasePlaying {
		return SessionState{}, newError(op, ErrPrecondition, "voting is only possible while playing")
	}

	if target != c.state.Phase {
		var err error
		switch target {
		case PhasePreparing:
			err = c.startLocked(ctx)
		case PhaseWaiting:
			err = c.resetLocked(ctx, false)
		default:
			err = newError(op, ErrPrecondition, "the game starts playing when the countdown ends")
		}
		if err != nil {
			return SessionState{}, err
		}
	}

	if patch.VoteRoundOpen != nil && c.state.Phase == PhasePlaying {
		if err := c.setVoteRoundLocked(ctx, *patch.VoteRoundOpen); err != nil {
			return SessionState{}, err
		}
	}

	return c.state.clone(), nil
}

// CastVote records voterID's vote for targetID in the current round.
func (c *Controller) CastVote(ctx context.Context, voterID, targetID string) (TallyReport, error) {
	return c.CastVoteInRound(ctx, 0, voterID, targetID)
}

// CastVoteInRound is CastVote for a client that says which round it is voting in.
// A vote for any round but the current one is rejected, so a client that has not yet
// seen a resolution cannot leak its vote into the next round. Round 0 means current.
// The returned report reflects the vote, and the round is resolved if it completed it.
func (c *Controller) CastVoteInRound(ctx context.Context, round uint64, voterID, targetID string) (TallyReport, error) {
	const op = "cast vote"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhasePlaying || !c.state.VoteRoundOpen {
		return TallyReport{}, newError(op, ErrPrecondition, "voting is closed")
	}
	if round != 0 && round != c.state.Round {
		return TallyReport{}, newError(op, ErrPrecondition, "round %d is over; the current round is %d", round, c.state.Round)
	}

	voter, err := c.lookupLocked(ctx, op, "voter", voterID)
	if err != nil {
		return TallyReport{}, err
	}
	if !voter.Eligible() {
		return TallyReport{}, newError(op, ErrPrecondition, "%s cannot vote", voter.DisplayName)
	}
	target, err := c.lookupLocked(ctx, op, "target", targetID)
	if err != nil {
		return TallyReport{}, err
	}
	if !target.Eligible() {
		return TallyReport{}, newError(op, ErrPrecondition, "%s cannot be voted for", target.DisplayName)
	}

	if err := c.store.PutVote(ctx, Vote{
		VoterID:  voter.ID,
		TargetID: target.ID,
		Round:    c.state.Round,
		CastAt:   time.Now().UTC(),
	}); err != nil {
		return TallyReport{}, fmt.Errorf("put vote: %w", err)
	}

	c.log.Debug().Str("voter", voter.ID).Str("target", target.ID).Uint64("round", c.state.Round).Msg("vote cast")

	report, _, err := c.resolveLocked(ctx)

	return report, err
}

func (c *Controller) lookupLocked(ctx context.Context, op, what, id string) (Participant, error) {
	p, err := c.store.GetParticipant(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Participant{}, newError(op, ErrNotFound, "no %s with id %q", what, id)
	}
	if err != nil {
		return Participant{}, fmt.Errorf("get %s: %w", what, err)
	}

	return p, nil
}

func (c *Controller) Votes(ctx context.Context) ([]Vote, error) {
	votes, err := c.store.ListVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	return votes, nil
}

// ClearVotes empties the ledger. While playing this starts a new round.
func (c *Controller) ClearVotes(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ClearVotes(ctx); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}
	if c.state.Phase != PhasePlaying {
		return nil
	}

	next := c.state.clone()
	next.Round++

	return c.commitLocked(ctx, next)
}

// TallyReport counts the current round. It writes nothing.
func (c *Controller) TallyReport(ctx context.Context) (TallyReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tallyLocked(ctx)
}

func (c *Controller) tallyLocked(ctx context.Context) (TallyReport, error) {
	roster, err := c.Roster(ctx)
	if err != nil {
		return TallyReport{}, err
	}
	ledger, err := c.Votes(ctx)
	if err != nil {
		return TallyReport{}, err
	}

	current := ledger[:0:0]
	for _, v := range ledger {
		if v.Round == c.state.Round {
			current = append(current, v)
		}
	}

	report := Tally(roster, current)
	report.Round = c.state.Round

	return report, nil
}

// ResolveRound tallies the current round and, if it is complete and voting is open, applies the outcome:
// a single winner is eliminated and voting closes; a tie reopens voting. Either way
// the ledger is cleared and the round advances. Calling it again for an outcome that
// was already applied changes nothing, so every poller may call it.
func (c *Controller) ResolveRound(ctx context.Context) (TallyReport, *Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveLocked(ctx)
}

func (c *Controller) resolveLocked(ctx context.Context) (TallyReport, *Resolution, error) {
	// A previous call eliminated but failed to finish; finish it without re-tallying,
	// since the elimination itself changed who is eligible.
	if c.applied != nil && c.applied.Round == c.state.Round {
		if err := c.finishRoundLocked(ctx, c.applied); err != nil {
			return TallyReport{}, nil, err
		}
		report, err := c.tallyLocked(ctx)
		return report, c.state.LastResolution, err
	}

	report, err := c.tallyLocked(ctx)
	if err != nil {
		return TallyReport{}, nil, err
	}
	// A closed round is paused: it is tallied but not applied until the host reopens it.
	if c.state.Phase != PhasePlaying || !c.state.VoteRoundOpen || !report.Resolved() {
		return report, nil, nil
	}

	res := &Resolution{
		ID:         report.ResolutionID(),
		Round:      report.Round,
		Winners:    report.WinnerIDs(),
		IsTie:      report.IsTie,
		ResolvedAt: time.Now().UTC(),
	}

	if !res.IsTie {
		res.Eliminated = res.Winners[0]
		if err := c.store.SetEliminated(ctx, res.Eliminated, true); err != nil {
			return report, nil, fmt.Errorf("eliminate %s: %w", res.Eliminated, err)
		}
	}
	c.applied = res

	if err := c.finishRoundLocked(ctx, res); err != nil {
		return report, nil, err
	}

	if res.IsTie {
		c.log.Info().Str("resolution", res.ID).Strs("tied", res.Winners).Msg("round tied; voting reopened")
	} else {
		c.log.Info().Str("resolution", res.ID).Str("eliminated", res.Eliminated).Msg("player eliminated")
	}

	return report, c.state.LastResolution, nil
}

func (c *Controller) finishRoundLocked(ctx context.Context, res *Resolution) error {
	if err := c.store.ClearVotes(ctx); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}

	next := c.state.clone()
	next.Round++
	next.VoteRoundOpen = res.IsTie
	resolved := *res
	next.LastResolution = &resolved
	if err := c.commitLocked(ctx, next); err != nil {
		return err
	}
	c.applied = nil

	return nil
}
