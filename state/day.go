package state

import (
	"time"

	"github.com/wfunc/traitorserver/models"
)

// MajorityOf is the strict majority threshold for n living players.
func MajorityOf(n int) int {
	return n/2 + 1
}

// Nominate records a day nomination. Reaching a strict majority of the
// living players sends the target straight to TRIAL.
func Nominate(s models.RoomSnapshot, voterID, targetID string, now time.Time) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseDayDiscussion {
		return s, wrongPhase(s.Phase, "nominate")
	}
	voter, _, ok := s.FindPlayer(voterID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", voterID)
	}
	if !voter.Alive {
		return s, Reject(CodePlayerDead, "dead players cannot nominate")
	}
	if !s.IsAlive(targetID) {
		return s, Reject(CodeInvalidTarget, "target %s is not a living player", targetID)
	}

	threshold := MajorityOf(s.LivingCount())

	next := s.Clone()
	target := targetID
	next.Nominations[voterID] = &target

	if NominationsFor(next, targetID) < threshold {
		return next, nil
	}

	next.Phase = models.PhaseTrial
	next.AccusedID = &target
	next.Nominations = map[string]*string{}
	next.PhaseEndsAt = now.Add(s.Config.TrialDuration)
	return next, nil
}

// NominationsFor counts nominations of targetID cast by living voters.
func NominationsFor(s models.RoomSnapshot, targetID string) int {
	n := 0
	for voterID, target := range s.Nominations {
		if target != nil && *target == targetID && s.IsAlive(voterID) {
			n++
		}
	}
	return n
}

// EndDiscussion closes a day that produced no accusation.
func EndDiscussion(s models.RoomSnapshot, now time.Time) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseDayDiscussion {
		return s, wrongPhase(s.Phase, "end the discussion")
	}
	return StartNight(s, now)
}

// StartVerdict closes the trial and opens the verdict ballot to every living
// player.
func StartVerdict(s models.RoomSnapshot, now time.Time) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseTrial {
		return s, wrongPhase(s.Phase, "open the verdict")
	}
	if s.AccusedID == nil {
		return s, Reject(CodeNoAccused, "no player is on trial")
	}

	next := s.Clone()
	next.Phase = models.PhaseDayVerdict
	next.VerdictVotes = map[string]*models.Verdict{}
	for _, p := range next.Players {
		if p.Alive {
			next.VerdictVotes[p.ID] = nil
		}
	}
	next.PhaseEndsAt = now.Add(s.Config.VerdictDuration)
	return next, nil
}

// SubmitVerdict records a HANG or SPARE ballot.
func SubmitVerdict(s models.RoomSnapshot, voterID string, choice models.Verdict) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseDayVerdict {
		return s, wrongPhase(s.Phase, "cast a verdict")
	}
	voter, _, ok := s.FindPlayer(voterID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", voterID)
	}
	if !voter.Alive {
		return s, Reject(CodePlayerDead, "dead players cannot vote")
	}
	if _, registered := s.VerdictVotes[voterID]; !registered {
		return s, Reject(CodeWrongRole, "player %s holds no ballot for this verdict", voterID)
	}
	if !choice.Valid() {
		return s, Reject(CodeInvalidChoice, "verdict must be %s or %s, got %q", models.VerdictHang, models.VerdictSpare, choice)
	}

	next := s.Clone()
	c := choice
	next.VerdictVotes[voterID] = &c
	return next, nil
}

// VerdictComplete reports whether every living ballot holder has voted.
func VerdictComplete(s models.RoomSnapshot) bool {
	if s.Phase != models.PhaseDayVerdict || len(s.VerdictVotes) == 0 {
		return false
	}
	for voterID, v := range s.VerdictVotes {
		if v == nil && s.IsAlive(voterID) {
			return false
		}
	}
	return true
}

// VerdictTally counts the cast ballots of living voters.
func VerdictTally(s models.RoomSnapshot) (hang, spare int) {
	for voterID, v := range s.VerdictVotes {
		if v == nil || !s.IsAlive(voterID) {
			continue
		}
		switch *v {
		case models.VerdictHang:
			hang++
		case models.VerdictSpare:
			spare++
		}
	}
	return hang, spare
}

// ResolveVerdict hangs the accused on a strict HANG majority of cast ballots;
// ties spare them. The game then ends or returns to NIGHT.
func ResolveVerdict(s models.RoomSnapshot, now time.Time) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseDayVerdict {
		return s, wrongPhase(s.Phase, "resolve the verdict")
	}
	if s.AccusedID == nil {
		return s, Reject(CodeNoAccused, "no player is on trial")
	}

	hang, spare := VerdictTally(s)
	accused := *s.AccusedID

	next := s.Clone()
	next.LastKilledID = nil
	if hang > spare && kill(&next, accused) {
		next.LastKilledID = &accused
	}

	if w := EvaluateWin(next.Players); w != nil {
		return finish(next, *w), nil
	}
	return StartNight(next, now)
}
