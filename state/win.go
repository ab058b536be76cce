package state

import (
	"github.com/wfunc/traitorserver/models"
)

// EvaluateWin returns the terminal outcome for the living composition, or
// nil while the game goes on. Traitors win on parity.
func EvaluateWin(players []models.Player) *models.Winner {
	var traitors, subjects int
	for _, p := range players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case models.RoleTraitor:
			traitors++
		case models.RoleSubject:
			subjects++
		}
	}

	var w models.Winner
	switch {
	case traitors+subjects == 0:
		w = models.WinnerDraw
	case traitors == 0:
		w = models.WinnerSubjects
	case traitors >= subjects:
		w = models.WinnerTraitors
	default:
		return nil
	}
	return &w
}
