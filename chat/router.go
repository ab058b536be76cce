// Package chat decides which free-text channel a sender may use and who
// receives the message.
package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/state"
)

const (
	CodeClosed        state.Code = "CHAT_CLOSED"
	CodeDeadSender    state.Code = "CHAT_DEAD_SENDER"
	CodeNotTraitor    state.Code = "CHAT_NOT_TRAITOR"
	CodeNotAccused    state.Code = "CHAT_NOT_ACCUSED"
	CodeInvalidLength state.Code = "CHAT_INVALID_LENGTH"
)

// MaxLength is the longest message, in runes after trimming.
const MaxLength = 300

type Channel string

const (
	ChannelRoom     Channel = "ROOM"
	ChannelTraitors Channel = "TRAITORS"
	ChannelAccused  Channel = "ACCUSED"
)

type Audience string

const (
	AudienceRoom     Audience = "ROOM"
	AudienceTraitors Audience = "TRAITORS"
)

// Route is where an accepted message goes.
type Route struct {
	Channel  Channel
	Audience Audience
}

// Includes reports whether p should receive a message on this route.
func (r Route) Includes(p models.Player) bool {
	if r.Audience == AudienceTraitors {
		return p.Role == models.RoleTraitor
	}
	return true
}

// Resolve routes a generic chat message from the given sender.
func Resolve(phase models.Phase, role models.Role, alive bool) (Route, error) {
	room := Route{Channel: ChannelRoom, Audience: AudienceRoom}

	switch phase {
	case models.PhaseLobby, models.PhaseGameOver:
		return room, nil
	case models.PhaseDayDiscussion, models.PhaseDayVerdict:
		if !alive {
			return Route{}, state.Reject(CodeDeadSender, "dead players cannot talk during %s", phase)
		}
		return room, nil
	case models.PhaseNight:
		if !alive {
			return Route{}, state.Reject(CodeDeadSender, "dead players cannot talk during %s", phase)
		}
		if role != models.RoleTraitor {
			return Route{}, state.Reject(CodeNotTraitor, "only traitors can talk during %s", phase)
		}
		return Route{Channel: ChannelTraitors, Audience: AudienceTraitors}, nil
	}
	return Route{}, state.Reject(CodeClosed, "chat is closed during %s", phase)
}

// ResolveAccused validates a message on the accused's channel and returns the
// trimmed text.
func ResolveAccused(s models.RoomSnapshot, senderID, text string) (string, error) {
	if s.Phase != models.PhaseTrial {
		return "", state.Reject(CodeClosed, "the accused can only speak during %s, not %s", models.PhaseTrial, s.Phase)
	}
	if s.AccusedID == nil || *s.AccusedID != senderID {
		return "", state.Reject(CodeNotAccused, "only the accused can use this channel")
	}
	return Normalize(text)
}

// Normalize trims text and enforces the length limits shared by every
// channel.
func Normalize(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 || n > MaxLength {
		return "", state.Reject(CodeInvalidLength, "message must be 1-%d characters, got %d", MaxLength, n)
	}
	return trimmed, nil
}
