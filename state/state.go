// Package state holds the rules of the game. Every function here is pure:
// it takes the current snapshot plus the action inputs and returns either the
// next snapshot or a *Rejection. Nothing in this package blocks, logs or
// keeps state between calls.
package state

import (
	"time"

	"github.com/wfunc/traitorserver/models"
)

// Rand is the randomness source used for role shuffling and night
// tie-breaks. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewLobby seeds a room with its host.
func NewLobby(roomID string, host models.Player, cfg models.GameConfig) models.RoomSnapshot {
	host.Role = models.RoleUnassigned
	host.Alive = true
	host.Connected = true
	host.IsHost = true
	return models.RoomSnapshot{
		ID:           roomID,
		Players:      []models.Player{host},
		Phase:        models.PhaseLobby,
		Config:       cfg,
		NightVotes:   map[string]*string{},
		Nominations:  map[string]*string{},
		VerdictVotes: map[string]*models.Verdict{},
	}
}

// Join seats a new player in the lobby.
func Join(s models.RoomSnapshot, p models.Player) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseLobby {
		return s, wrongPhase(s.Phase, "join")
	}
	for _, seated := range s.Players {
		if seated.AccountID == p.AccountID {
			return s, Reject(CodeDuplicateAccount, "account %s is already seated", p.AccountID)
		}
	}
	if s.Config.MaxPlayers > 0 && len(s.Players) >= s.Config.MaxPlayers {
		return s, Reject(CodeRoomFull, "room is full (%d players)", s.Config.MaxPlayers)
	}

	p.Role = models.RoleUnassigned
	p.Alive = true
	p.Connected = true
	p.IsHost = false

	next := s.Clone()
	next.Players = append(next.Players, p)
	return next, nil
}

// Leave removes a player from the lobby, promoting the first remaining
// player when the host is gone.
func Leave(s models.RoomSnapshot, playerID string) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseLobby {
		return s, wrongPhase(s.Phase, "leave")
	}
	_, idx, ok := s.FindPlayer(playerID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", playerID)
	}

	next := s.Clone()
	next.Players = append(next.Players[:idx], next.Players[idx+1:]...)
	if _, hasHost := next.Host(); !hasHost && len(next.Players) > 0 {
		next.Players[0].IsHost = true
	}
	return next, nil
}

// Start assigns roles if needed and opens the first night.
func Start(s models.RoomSnapshot, playerID string, now time.Time, rng Rand) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseLobby {
		return s, wrongPhase(s.Phase, "start")
	}
	p, _, ok := s.FindPlayer(playerID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", playerID)
	}
	if !p.IsHost {
		return s, Reject(CodeNotHost, "only the host can start the game")
	}
	if len(s.Players) < s.Config.MinPlayers {
		return s, Reject(CodeNotEnoughPlayers, "need at least %d players, have %d", s.Config.MinPlayers, len(s.Players))
	}

	next, err := AssignRoles(s, rng)
	if err != nil {
		return s, err
	}
	return StartNight(next, now)
}

// TraitorCount is the number of traitors dealt for n players.
func TraitorCount(n int) int {
	t := n / 4
	if t < 1 {
		t = 1
	}
	if t > n {
		t = n
	}
	return t
}

// AssignRoles deals roles once. Calling it again after roles are assigned
// returns s unchanged.
func AssignRoles(s models.RoomSnapshot, rng Rand) (models.RoomSnapshot, error) {
	if s.Phase != models.PhaseLobby {
		return s, wrongPhase(s.Phase, "assign roles")
	}
	if s.RolesAssigned {
		return s, nil
	}

	next := s.Clone()
	order := make([]int, len(next.Players))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	traitors := TraitorCount(len(order))
	for rank, idx := range order {
		if rank < traitors {
			next.Players[idx].Role = models.RoleTraitor
		} else {
			next.Players[idx].Role = models.RoleSubject
		}
		next.Players[idx].Alive = true
	}
	next.RolesAssigned = true
	return next, nil
}

// StartNight enters NIGHT from the lobby or from either end of the day.
func StartNight(s models.RoomSnapshot, now time.Time) (models.RoomSnapshot, error) {
	switch s.Phase {
	case models.PhaseLobby:
		if !s.RolesAssigned {
			return s, Reject(CodeRolesNotAssigned, "roles have not been assigned")
		}
	case models.PhaseDayDiscussion, models.PhaseDayVerdict:
	default:
		return s, wrongPhase(s.Phase, "start the night")
	}

	next := s.Clone()
	if s.Phase == models.PhaseLobby {
		next.NightNumber = 1
	} else {
		next.NightNumber++
	}
	next.Phase = models.PhaseNight
	next.AccusedID = nil
	next.Nominations = map[string]*string{}
	next.VerdictVotes = map[string]*models.Verdict{}
	next.NightVotes = map[string]*string{}
	for _, p := range next.Players {
		if p.Alive && p.Role == models.RoleTraitor {
			next.NightVotes[p.ID] = nil
		}
	}
	next.PhaseEndsAt = now.Add(s.Config.NightDuration)
	return next, nil
}

// Timeout applies the transition a phase takes when its deadline passes.
func Timeout(s models.RoomSnapshot, now time.Time, rng Rand) (models.RoomSnapshot, error) {
	switch s.Phase {
	case models.PhaseNight:
		return ResolveNight(s, now, rng)
	case models.PhaseDayDiscussion:
		return EndDiscussion(s, now)
	case models.PhaseTrial:
		return StartVerdict(s, now)
	case models.PhaseDayVerdict:
		return ResolveVerdict(s, now)
	}
	return s, wrongPhase(s.Phase, "time out")
}

// SetConnected flips the connectivity flag of a seated player.
func SetConnected(s models.RoomSnapshot, playerID string, connected bool) (models.RoomSnapshot, error) {
	_, idx, ok := s.FindPlayer(playerID)
	if !ok {
		return s, Reject(CodePlayerNotFound, "player %s not found", playerID)
	}
	next := s.Clone()
	next.Players[idx].Connected = connected
	return next, nil
}

// Disconnect removes the player while still in the lobby and otherwise keeps
// them seated with Connected cleared.
func Disconnect(s models.RoomSnapshot, playerID string) (models.RoomSnapshot, error) {
	if s.Phase == models.PhaseLobby {
		return Leave(s, playerID)
	}
	return SetConnected(s, playerID, false)
}

// finish moves the room into GAME_OVER.
func finish(s models.RoomSnapshot, w models.Winner) models.RoomSnapshot {
	s.Phase = models.PhaseGameOver
	s.Winner = &w
	s.AccusedID = nil
	s.PhaseEndsAt = time.Time{}
	s.NightVotes = map[string]*string{}
	s.Nominations = map[string]*string{}
	s.VerdictVotes = map[string]*models.Verdict{}
	return s
}

func kill(s *models.RoomSnapshot, playerID string) bool {
	_, idx, ok := s.FindPlayer(playerID)
	if !ok || !s.Players[idx].Alive {
		return false
	}
	s.Players[idx].Alive = false
	return true
}
