// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/sourcegraph/conc"

	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/monitor"
	"github.com/wfunc/traitorserver/network"
	"github.com/wfunc/traitorserver/room"
	"github.com/wfunc/traitorserver/session"
	"github.com/wfunc/traitorserver/view"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 基于房间的广播器. 每个连接独立发送, 一个连接失败不影响其他连接
type RoomBroadcaster struct {
	roomManager *room.Manager
	monitor     *monitor.Monitor
}

func NewRoomBroadcaster(roomManager *room.Manager, mon *monitor.Monitor) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager: roomManager,
		monitor:     mon,
	}
}

// BroadcastState sends every bound connection its own redacted view of snap.
// It returns once every send has finished or failed.
func (b *RoomBroadcaster) BroadcastState(r *room.Room, snap models.RoomSnapshot) {
	b.fanOut(r.GetSessions(), func(s *session.Session) ([]byte, bool) {
		data, err := json.Marshal(network.RoomStateEvent{View: view.For(snap, s.PlayerID())})
		if err != nil {
			logger.Log.Errorf("encode room state for session %s: %v", s.ID, err)
			return nil, false
		}
		return data, true
	}, network.MsgTypeRoomState)
}

// BroadcastToRoom sends the same payload to every connection bound to
// roomID.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	b.BroadcastToPlayers(r, msgID, data, nil)
	return nil
}

// BroadcastToPlayers sends data to the connections whose player passes
// include. A nil include selects everyone.
func (b *RoomBroadcaster) BroadcastToPlayers(r *room.Room, msgID uint16, data []byte, include func(playerID string) bool) {
	var targets []*session.Session
	for _, s := range r.GetSessions() {
		if include == nil || include(s.PlayerID()) {
			targets = append(targets, s)
		}
	}
	b.fanOut(targets, func(*session.Session) ([]byte, bool) { return data, true }, msgID)
}

func (b *RoomBroadcaster) fanOut(targets []*session.Session, payload func(*session.Session) ([]byte, bool), msgID uint16) {
	var wg conc.WaitGroup
	for _, s := range targets {
		wg.Go(func() {
			data, ok := payload(s)
			if !ok {
				return
			}
			if err := s.Send(msgID, data); err != nil {
				// 发送失败只记录, 连接的读循环会负责清理
				b.monitor.IncSendFailures()
				logger.Log.Debugw("send failed", "session", s.ID, "msg", network.MsgName(msgID), "error", err)
			}
		})
	}
	wg.Wait()
}
