// Package view projects a room snapshot onto what a single viewer may see.
package view

import (
	"github.com/wfunc/traitorserver/models"
)

// PublicPlayer is the part of a player every viewer can see.
type PublicPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"is_host"`
}

// SelfView carries the viewer's own hidden role.
type SelfView struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	Alive bool        `json:"alive"`
}

// RoomView is the redacted projection sent to one viewer.
type RoomView struct {
	RoomID       string         `json:"room_id"`
	Phase        models.Phase   `json:"phase"`
	DayNumber    int            `json:"day_number"`
	NightNumber  int            `json:"night_number"`
	AccusedID    *string        `json:"accused_id"`
	LastKilledID *string        `json:"last_killed_id"`
	PhaseEndsAt  int64          `json:"phase_ends_at"` // unix millis, 0 when untimed
	Winner       *models.Winner `json:"winner"`
	Players      []PublicPlayer `json:"players"`
	Self         *SelfView      `json:"self,omitempty"`
	Nominations  map[string]int `json:"nominations,omitempty"`
}

// For builds viewerID's view of s. Other players' roles never appear; a
// viewer that is not seated gets no Self.
func For(s models.RoomSnapshot, viewerID string) RoomView {
	v := RoomView{
		RoomID:       s.ID,
		Phase:        s.Phase,
		DayNumber:    s.DayNumber,
		NightNumber:  s.NightNumber,
		AccusedID:    copyString(s.AccusedID),
		LastKilledID: copyString(s.LastKilledID),
		Players:      make([]PublicPlayer, 0, len(s.Players)),
	}
	if s.Phase.Timed() && !s.PhaseEndsAt.IsZero() {
		v.PhaseEndsAt = s.PhaseEndsAt.UnixMilli()
	}
	if s.Winner != nil {
		w := *s.Winner
		v.Winner = &w
	}

	for _, p := range s.Players {
		v.Players = append(v.Players, PublicPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Alive:     p.Alive,
			Connected: p.Connected,
			IsHost:    p.IsHost,
		})
		if p.ID == viewerID {
			v.Self = &SelfView{ID: p.ID, Name: p.Name, Role: p.Role, Alive: p.Alive}
		}
	}

	if s.Phase == models.PhaseDayDiscussion {
		for voterID, target := range s.Nominations {
			if target == nil || !s.IsAlive(voterID) {
				continue
			}
			if v.Nominations == nil {
				v.Nominations = make(map[string]int)
			}
			v.Nominations[*target]++
		}
	}
	return v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
