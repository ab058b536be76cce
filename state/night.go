package state

import (
	"sort"
	"time"

	"github.com/wfunc/traitorserver/models"
)

// SubmitNightVote records a traitor's kill target for this night.
func SubmitNightVote(s models.RoomSnapshot, voterID, targetID string) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseNight {
		return s, wrongPhase(s.Phase, "vote at night")
	}
	voter, _, ok := s.FindPlayer(voterID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", voterID)
	}
	if !voter.Alive {
		return s, Reject(CodePlayerDead, "dead players cannot vote")
	}
	if voter.Role != models.RoleTraitor {
		return s, Reject(CodeWrongRole, "only traitors vote at night")
	}
	if _, scheduled := s.NightVotes[voterID]; !scheduled {
		return s, Reject(CodeWrongRole, "player %s is not scheduled to vote this night", voterID)
	}
	if !s.IsAlive(targetID) {
		return s, Reject(CodeInvalidTarget, "target %s is not a living player", targetID)
	}

	next := s.Clone()
	target := targetID
	next.NightVotes[voterID] = &target
	return next, nil
}

// NightComplete reports whether every living traitor has voted.
func NightComplete(s models.RoomSnapshot) bool {
	if s.Phase != models.PhaseNight {
		return false
	}
	for _, p := range s.Players {
		if !p.Alive || p.Role != models.RoleTraitor {
			continue
		}
		if v, ok := s.NightVotes[p.ID]; !ok || v == nil {
			return false
		}
	}
	return true
}

// ResolveNight tallies the night ballots, eliminates the chosen target and
// either opens the day or ends the game.
func ResolveNight(s models.RoomSnapshot, now time.Time, rng Rand) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseNight {
		return s, wrongPhase(s.Phase, "resolve the night")
	}

	next := s.Clone()
	next.LastKilledID = nil
	if victim, ok := nightVictim(s, rng); ok && kill(&next, victim) {
		next.LastKilledID = &victim
	}

	if w := EvaluateWin(next.Players); w != nil {
		return finish(next, *w), nil
	}

	next.Phase = models.PhaseDayDiscussion
	next.DayNumber++
	next.AccusedID = nil
	next.NightVotes = map[string]*string{}
	next.VerdictVotes = map[string]*models.Verdict{}
	next.Nominations = map[string]*string{}
	for _, p := range next.Players {
		if p.Alive {
			next.Nominations[p.ID] = nil
		}
	}
	next.PhaseEndsAt = now.Add(s.Config.DiscussionDuration)
	return next, nil
}

// nightVictim picks the most voted target. Ties are broken uniformly with
// rng over the tied ids in sorted order so a fixed seed gives a fixed pick.
// The returned target may already be dead.
func nightVictim(s models.RoomSnapshot, rng Rand) (string, bool) {
	tally := make(map[string]int)
	for voterID, target := range s.NightVotes {
		if target == nil || !s.IsAlive(voterID) {
			continue
		}
		tally[*target]++
	}
	if len(tally) == 0 {
		return "", false
	}

	best := 0
	var tied []string
	for target, n := range tally {
		switch {
		case n > best:
			best = n
			tied = []string{target}
		case n == best:
			tied = append(tied, target)
		}
	}
	if len(tied) == 1 {
		return tied[0], true
	}
	sort.Strings(tied)
	return tied[rng.Intn(len(tied))], true
}
