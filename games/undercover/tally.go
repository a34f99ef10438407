/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"strconv"
	"strings"
)

// Candidate is one participant tied for the most votes.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// TallyReport is the state of the current round's votes.
type TallyReport struct {
	AllVoted       bool           `json:"allVoted"`
	Tally          map[string]int `json:"voteCounts"`
	Winners        []Candidate    `json:"topPlayers"`
	IsTie          bool           `json:"isTie"`
	MaxVotes       int            `json:"maxVotes"`
	EligibleVoters int            `json:"eligibleVoters"`
	VotesCast      int            `json:"votesCast"`
	Round          uint64         `json:"round"`
}

// Resolved reports whether every eligible voter has voted and someone received a vote.
func (r TallyReport) Resolved() bool {
	return r.AllVoted && len(r.Winners) > 0
}

// ResolutionID names this outcome so that applying it twice can be detected.
// It is empty for an unresolved report.
func (r TallyReport) ResolutionID() string {
	if !r.Resolved() {
		return ""
	}

	return "r" + strconv.FormatUint(r.Round, 10) + ":" + strings.Join(r.WinnerIDs(), ",")
}

// WinnerIDs returns the ids of Winners in order.
func (r TallyReport) WinnerIDs() []string {
	ids := make([]string, len(r.Winners))
	for i, w := range r.Winners {
		ids[i] = w.ID
	}
	return ids
}

// Tally counts votes for roster. It does not trust the ledger: only votes cast by eligible
// participants count, and only eligible participants can receive votes. The result depends
// only on its inputs, and winners are listed in roster order.
func Tally(roster []Participant, votes []Vote) TallyReport {
	eligible := make(map[string]bool, len(roster))
	report := TallyReport{
		Tally:   make(map[string]int, len(roster)),
		Winners: []Candidate{},
	}

	for _, p := range roster {
		if !p.Eligible() {
			continue
		}
		eligible[p.ID] = true
		report.Tally[p.ID] = 0
	}
	report.EligibleVoters = len(eligible)

	// The last entry for a voter wins.
	choice := make(map[string]string, len(votes))
	for _, v := range votes {
		if eligible[v.VoterID] {
			choice[v.VoterID] = v.TargetID
		}
	}
	for _, target := range choice {
		if _, ok := report.Tally[target]; ok {
			report.Tally[target]++
		}
	}
	report.VotesCast = len(choice)

	for _, count := range report.Tally {
		report.MaxVotes = max(report.MaxVotes, count)
	}

	if report.MaxVotes > 0 {
		for _, p := range roster {
			if eligible[p.ID] && report.Tally[p.ID] == report.MaxVotes {
				report.Winners = append(report.Winners, Candidate{
					ID:    p.ID,
					Name:  p.DisplayName,
					Votes: report.MaxVotes,
				})
			}
		}
	}

	report.IsTie = len(report.Winners) > 1
	report.AllVoted = report.EligibleVoters > 0 && report.VotesCast == report.EligibleVoters

	return report
}
