// models/models.go
package models

import (
	"time"
)

// Phase 房间当前所处的阶段
type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseNight         Phase = "NIGHT"
	PhaseDayDiscussion Phase = "DAY_DISCUSSION"
	PhaseTrial         Phase = "TRIAL"
	PhaseDayVerdict    Phase = "DAY_VERDICT"
	PhaseGameOver      Phase = "GAME_OVER"
)

// Timed reports whether the phase runs against a deadline.
func (p Phase) Timed() bool {
	switch p {
	case PhaseNight, PhaseDayDiscussion, PhaseTrial, PhaseDayVerdict:
		return true
	}
	return false
}

// Role 玩家阵营
type Role string

const (
	RoleUnassigned Role = ""
	RoleSubject    Role = "SUBJECT"
	RoleTraitor    Role = "TRAITOR"
)

// Winner 游戏结果
type Winner string

const (
	WinnerSubjects Winner = "SUBJECTS"
	WinnerTraitors Winner = "TRAITORS"
	WinnerDraw     Winner = "DRAW"
)

// Verdict is a ballot cast during DAY_VERDICT.
type Verdict string

const (
	VerdictHang  Verdict = "HANG"
	VerdictSpare Verdict = "SPARE"
)

func (v Verdict) Valid() bool {
	return v == VerdictHang || v == VerdictSpare
}

// Player 玩家数据
type Player struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"is_host"`
}

// GameConfig holds the per-room rules fixed at creation time.
type GameConfig struct {
	MinPlayers         int           `json:"min_players"`
	MaxPlayers         int           `json:"max_players"`
	NightDuration      time.Duration `json:"night_duration"`
	DiscussionDuration time.Duration `json:"discussion_duration"`
	TrialDuration      time.Duration `json:"trial_duration"`
	VerdictDuration    time.Duration `json:"verdict_duration"`
}

// RoomSnapshot is the complete state of one room. A snapshot is never
// modified after it has been stored; every transition builds a new one
// from Clone.
type RoomSnapshot struct {
	ID            string              `json:"id"`
	Players       []Player            `json:"players"`
	Phase         Phase               `json:"phase"`
	DayNumber     int                 `json:"day_number"`
	NightNumber   int                 `json:"night_number"`
	AccusedID     *string             `json:"accused_id"`
	LastKilledID  *string             `json:"last_killed_id"`
	PhaseEndsAt   time.Time           `json:"phase_ends_at"`
	Winner        *Winner             `json:"winner"`
	RolesAssigned bool                `json:"roles_assigned"`
	Config        GameConfig          `json:"config"`
	NightVotes    map[string]*string  `json:"night_votes"`
	Nominations   map[string]*string  `json:"nominations"`
	VerdictVotes  map[string]*Verdict `json:"verdict_votes"`
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s RoomSnapshot) Clone() RoomSnapshot {
	next := s
	next.Players = append([]Player(nil), s.Players...)
	next.AccusedID = cloneString(s.AccusedID)
	next.LastKilledID = cloneString(s.LastKilledID)
	if s.Winner != nil {
		w := *s.Winner
		next.Winner = &w
	}
	next.NightVotes = cloneTargets(s.NightVotes)
	next.Nominations = cloneTargets(s.Nominations)
	next.VerdictVotes = make(map[string]*Verdict, len(s.VerdictVotes))
	for voter, v := range s.VerdictVotes {
		if v == nil {
			next.VerdictVotes[voter] = nil
			continue
		}
		choice := *v
		next.VerdictVotes[voter] = &choice
	}
	return next
}

// FindPlayer returns the player with the given in-session id and its index.
func (s RoomSnapshot) FindPlayer(playerID string) (Player, int, bool) {
	for i, p := range s.Players {
		if p.ID == playerID {
			return p, i, true
		}
	}
	return Player{}, -1, false
}

// Host returns the current host, if any.
func (s RoomSnapshot) Host() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

// Living returns the living players in seat order.
func (s RoomSnapshot) Living() []Player {
	living := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Alive {
			living = append(living, p)
		}
	}
	return living
}

func (s RoomSnapshot) LivingCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}

// IsAlive reports whether playerID is seated and alive.
func (s RoomSnapshot) IsAlive(playerID string) bool {
	p, _, ok := s.FindPlayer(playerID)
	return ok && p.Alive
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTargets(in map[string]*string) map[string]*string {
	out := make(map[string]*string, len(in))
	for voter, target := range in {
		out[voter] = cloneString(target)
	}
	return out
}

// GameRecord 游戏记录模型
type GameRecord struct {
	RoomID      string         `json:"room_id"`
	Winner      Winner         `json:"winner"`
	DayNumber   int            `json:"day_number"`
	NightNumber int            `json:"night_number"`
	Players     []PlayerResult `json:"players"`
	EndedAt     time.Time      `json:"ended_at"`
}

// Outcome of a finished game for one player.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// PlayerResult 玩家信息（用于游戏记录）
type PlayerResult struct {
	AccountID string  `json:"account_id"`
	Name      string  `json:"name"`
	Role      Role    `json:"role"`
	Survived  bool    `json:"survived"`
	Outcome   Outcome `json:"outcome"`
}

// AccountStats 玩家统计信息
type AccountStats struct {
	AccountID    string `json:"account_id"`
	TotalGames   int    `json:"total_games"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	TraitorGames int    `json:"traitor_games"`
}
