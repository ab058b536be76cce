package state

import (
	"fmt"

	"github.com/wfunc/traitorserver/models"
)

// CheckInvariants verifies the structural rules every stored snapshot must
// satisfy.
func CheckInvariants(s models.RoomSnapshot) error {
	if !s.RolesAssigned && s.Phase != models.PhaseLobby {
		return fmt.Errorf("roles unassigned in phase %s", s.Phase)
	}
	if (s.Winner != nil) != (s.Phase == models.PhaseGameOver) {
		return fmt.Errorf("winner set=%t in phase %s", s.Winner != nil, s.Phase)
	}
	if s.AccusedID != nil && s.Phase != models.PhaseTrial && s.Phase != models.PhaseDayVerdict {
		return fmt.Errorf("accused %s recorded in phase %s", *s.AccusedID, s.Phase)
	}

	switch s.Phase {
	case models.PhaseNight:
		want := make(map[string]bool)
		for _, p := range s.Players {
			if p.Alive && p.Role == models.RoleTraitor {
				want[p.ID] = true
			}
		}
		if err := sameKeys("night ballots", want, len(s.NightVotes), func(id string) bool {
			_, ok := s.NightVotes[id]
			return ok
		}); err != nil {
			return err
		}
	case models.PhaseDayVerdict:
		want := make(map[string]bool)
		for _, p := range s.Players {
			if p.Alive {
				want[p.ID] = true
			}
		}
		if err := sameKeys("verdict ballots", want, len(s.VerdictVotes), func(id string) bool {
			_, ok := s.VerdictVotes[id]
			return ok
		}); err != nil {
			return err
		}
	}
	return nil
}

func sameKeys(name string, want map[string]bool, have int, has func(string) bool) error {
	if have != len(want) {
		return fmt.Errorf("%s: %d entries, want %d", name, have, len(want))
	}
	for id := range want {
		if !has(id) {
			return fmt.Errorf("%s: missing entry for %s", name, id)
		}
	}
	return nil
}
