/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import "context"

// Snapshot is everything one client needs to render a poll, as seen by that client.
type Snapshot struct {
	State    SessionState  `json:"state"`
	Players  []Participant `json:"players"`
	Report   TallyReport   `json:"votes"`
	Me       *Participant  `json:"me,omitempty"`
	Word     string        `json:"word,omitempty"`
	Settings *RoleConfig   `json:"settings,omitempty"`
	VotedFor string        `json:"votedFor,omitempty"`
}

// View builds the snapshot for viewerID. Pollers drive round resolution, so a round
// that completed since the last poll is applied here before the snapshot is taken.
//
// The host sees every role and the role configuration. Everyone else sees their own
// role and word, and the roles of eliminated players.
func (c *Controller) View(ctx context.Context, viewerID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report, _, err := c.resolveLocked(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	roster, err := c.Roster(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		State:   c.state.clone(),
		Players: make([]Participant, 0, len(roster)),
		Report:  report,
	}

	isHost := viewerID == c.hostID
	if isHost && c.config != nil {
		cfg := *c.config
		snap.Settings = &cfg
	}

	for _, p := range roster {
		if p.ID == viewerID {
			me := p
			snap.Me = &me
			if c.config != nil {
				snap.Word = c.config.WordFor(p.SecretRole)
			}
		}
		if !isHost && p.ID != viewerID && !p.Eliminated {
			p.SecretRole = RoleNone
		}
		snap.Players = append(snap.Players, p)
	}

	votes, err := c.Votes(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, v := range votes {
		if v.VoterID == viewerID && v.Round == c.state.Round {
			snap.VotedFor = v.TargetID
		}
	}

	return snap, nil
}
