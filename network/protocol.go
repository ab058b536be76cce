package network

// 消息ID. 1xx 房间请求, 2xx 对局请求, 3xx 服务端事件, 400 错误
const (
	MsgTypeHeartbeat = 1

	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeStartRoom  = 103
	MsgTypeLeaveRoom  = 104

	MsgTypeNightVote   = 201
	MsgTypeNominate    = 202
	MsgTypeVerdictVote = 203
	MsgTypeAccusedChat = 204
	MsgTypeChat        = 205

	MsgTypeRoomCreated          = 301
	MsgTypePlayerJoined         = 302
	MsgTypeRoomState            = 303
	MsgTypeAccusedChatBroadcast = 304
	MsgTypeChatBroadcast        = 305

	MsgTypeError = 400
)

// MsgName returns a short label for metrics and logs.
func MsgName(msgID uint16) string {
	switch msgID {
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeCreateRoom:
		return "create_room"
	case MsgTypeJoinRoom:
		return "join_room"
	case MsgTypeStartRoom:
		return "start_room"
	case MsgTypeLeaveRoom:
		return "leave_room"
	case MsgTypeNightVote:
		return "night_vote"
	case MsgTypeNominate:
		return "nominate"
	case MsgTypeVerdictVote:
		return "verdict_vote"
	case MsgTypeAccusedChat:
		return "accused_chat"
	case MsgTypeChat:
		return "chat"
	case MsgTypeRoomCreated:
		return "room_created"
	case MsgTypePlayerJoined:
		return "player_joined"
	case MsgTypeRoomState:
		return "room_state"
	case MsgTypeAccusedChatBroadcast:
		return "accused_chat_broadcast"
	case MsgTypeChatBroadcast:
		return "chat_broadcast"
	case MsgTypeError:
		return "error"
	}
	return "unknown"
}
