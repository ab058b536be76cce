package network

import (
	"github.com/wfunc/traitorserver/view"
)

// Requests. Every action after create/join carries the caller's claimed
// room and player, which must match the connection's binding.

type CreateRoomRequest struct {
	AccountID   string `json:"account_id" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=32"`
	MinPlayers  int    `json:"min_players,omitempty" validate:"omitempty,min=3,max=32"`
}

type JoinRoomRequest struct {
	RoomID      string `json:"room_id" validate:"required"`
	AccountID   string `json:"account_id" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

// PlayerRequest is the payload of start-room and leave-room.
type PlayerRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
}

// TargetRequest is the payload of night-vote and nominate.
type TargetRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type VerdictRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
	Choice   string `json:"choice" validate:"required"`
}

// ChatRequest is the payload of chat and accused-chat.
type ChatRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// Events.

type RoomCreatedEvent struct {
	View     view.RoomView `json:"view"`
	PlayerID string        `json:"player_id"`
}

type PlayerJoinedEvent struct {
	View     view.RoomView `json:"view"`
	PlayerID string        `json:"player_id"`
}

type RoomStateEvent struct {
	View view.RoomView `json:"view"`
}

type AccusedChatEvent struct {
	RoomID    string `json:"room_id"`
	PlayerID  string `json:"player_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type ChatEvent struct {
	RoomID    string `json:"room_id"`
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
