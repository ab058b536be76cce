// Package gateway binds connections to rooms and drives every room forward:
// it authorizes inbound actions against the connection's identity, applies
// them through the rules engine inside the room's critical section, resets
// the room's deadline and fans the redacted state out to every connection.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wfunc/traitorserver/chat"
	"github.com/wfunc/traitorserver/config"
	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/monitor"
	"github.com/wfunc/traitorserver/network"
	"github.com/wfunc/traitorserver/room"
	"github.com/wfunc/traitorserver/session"
	"github.com/wfunc/traitorserver/state"
	"github.com/wfunc/traitorserver/view"
)

const (
	CodeIdentityMismatch state.Code = "IDENTITY_MISMATCH"
	CodeRoomMismatch     state.Code = "ROOM_MISMATCH"
	CodeNotInRoom        state.Code = "NOT_IN_ROOM"
	CodeAlreadyInRoom    state.Code = "ALREADY_IN_ROOM"
	CodeRoomNotFound     state.Code = "ROOM_NOT_FOUND"
	CodeMalformedPayload state.Code = "MALFORMED_PAYLOAD"
	CodeUnknownMessage   state.Code = "UNKNOWN_MESSAGE"
	CodeRateLimited      state.Code = "RATE_LIMITED"
	CodeInternal         state.Code = "INTERNAL"
)

var errStaleDeadline = errors.New("deadline no longer current")

// Broadcaster delivers messages to the connections bound to a room.
type Broadcaster interface {
	BroadcastState(r *room.Room, snap models.RoomSnapshot)
	BroadcastToPlayers(r *room.Room, msgID uint16, data []byte, include func(playerID string) bool)
}

// Archiver stores finished games.
type Archiver interface {
	RecordFinishedGame(ctx context.Context, snap models.RoomSnapshot, endedAt time.Time) error
}

type Gateway struct {
	rules       config.GameConfig
	rooms       *room.Manager
	broadcaster Broadcaster
	monitor     *monitor.Monitor
	archiver    Archiver
	validate    *validator.Validate
	now         func() time.Time
	seed        func() int64
	newID       func() string
	archives    sync.WaitGroup
}

type Option func(*Gateway)

// WithClock sets the clock used for phase deadlines.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithSeed sets the source of per-room RNG seeds.
func WithSeed(seed func() int64) Option {
	return func(g *Gateway) { g.seed = seed }
}

// WithIDs sets the generator for room and player ids.
func WithIDs(newID func() string) Option {
	return func(g *Gateway) { g.newID = newID }
}

func WithMonitor(m *monitor.Monitor) Option {
	return func(g *Gateway) { g.monitor = m }
}

func WithArchiver(a Archiver) Option {
	return func(g *Gateway) { g.archiver = a }
}

func New(rules config.GameConfig, rooms *room.Manager, b Broadcaster, opts ...Option) *Gateway {
	g := &Gateway{
		rules:       rules,
		rooms:       rooms,
		broadcaster: b,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
		seed:        func() int64 { return time.Now().UnixNano() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle processes one inbound packet from sess. Failures are reported to
// sess only.
func (g *Gateway) Handle(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	name := network.MsgName(packet.MsgID)
	g.monitor.IncMessagesReceived(name)
	defer func() { g.monitor.ObserveMessageLatency(time.Since(start)) }()

	sess.Touch()
	if packet.MsgID == network.MsgTypeHeartbeat {
		if err := sess.Send(network.MsgTypeHeartbeat, nil); err != nil {
			logger.Log.Debugw("heartbeat reply failed", "session", sess.ID, "error", err)
		}
		return
	}
	if !sess.Allow() {
		g.fail(sess, state.Reject(CodeRateLimited, "too many messages"))
		return
	}

	var err error
	switch packet.MsgID {
	case network.MsgTypeCreateRoom:
		err = g.createRoom(sess, packet.Data)
	case network.MsgTypeJoinRoom:
		err = g.joinRoom(sess, packet.Data)
	case network.MsgTypeStartRoom:
		err = g.startRoom(sess, packet.Data)
	case network.MsgTypeLeaveRoom:
		err = g.leaveRoom(sess, packet.Data)
	case network.MsgTypeNightVote:
		err = g.nightVote(sess, packet.Data)
	case network.MsgTypeNominate:
		err = g.nominate(sess, packet.Data)
	case network.MsgTypeVerdictVote:
		err = g.verdictVote(sess, packet.Data)
	case network.MsgTypeAccusedChat:
		err = g.accusedChat(sess, packet.Data)
	case network.MsgTypeChat:
		err = g.chat(sess, packet.Data)
	default:
		err = state.Reject(CodeUnknownMessage, "unknown message type %d", packet.MsgID)
	}
	if err != nil {
		g.fail(sess, err)
	}
}

// Disconnect releases sess. In the lobby its player leaves the room;
// otherwise the player stays seated with Connected cleared.
func (g *Gateway) Disconnect(sess *session.Session) {
	roomID, playerID := sess.Unbind()
	if playerID == "" {
		return
	}
	r, ok := g.rooms.GetRoom(roomID)
	if !ok {
		return
	}
	r.RemoveSession(sess.ID)

	next, err := r.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		return state.Disconnect(cur, playerID)
	}, g.commit(r, nil))
	if err != nil {
		logger.Log.Debugw("disconnect after room change", "room", roomID, "player", playerID, "error", err)
		return
	}
	g.dropIfEmpty(r, next)
}

// RoomSnapshot returns the unredacted snapshot of a room.
func (g *Gateway) RoomSnapshot(roomID string) (models.RoomSnapshot, bool) {
	r, ok := g.rooms.GetRoom(roomID)
	if !ok {
		return models.RoomSnapshot{}, false
	}
	return r.Snapshot(), true
}

// Sweep evicts rooms idle for ttl and unbinds their connections.
func (g *Gateway) Sweep(now time.Time, ttl time.Duration) int {
	removed := g.rooms.Sweep(now, ttl)
	for _, r := range removed {
		for _, s := range r.GetSessions() {
			s.Unbind()
			r.RemoveSession(s.ID)
		}
		logger.Log.Infow("room evicted", "room", r.ID)
	}
	g.monitor.AddRoomsEvicted(len(removed))
	g.monitor.SetActiveRooms(g.rooms.Count())
	return len(removed)
}

// RoomCount returns the number of live rooms.
func (g *Gateway) RoomCount() int {
	return g.rooms.Count()
}

// Wait blocks until pending archive writes finish.
func (g *Gateway) Wait() {
	g.archives.Wait()
}

func (g *Gateway) createRoom(sess *session.Session, data []byte) error {
	if sess.PlayerID() != "" {
		return state.Reject(CodeAlreadyInRoom, "connection already plays in room %s", sess.RoomID())
	}
	var req network.CreateRoomRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	if g.rules.MaxPlayers > 0 && req.MinPlayers > g.rules.MaxPlayers {
		return state.Reject(CodeMalformedPayload, "min_players %d exceeds the room cap of %d", req.MinPlayers, g.rules.MaxPlayers)
	}

	roomID, playerID := g.newID(), g.newID()
	host := models.Player{ID: playerID, AccountID: req.AccountID, Name: req.DisplayName}
	snap := state.NewLobby(roomID, host, g.rules.Rules(req.MinPlayers))

	r, err := g.rooms.CreateRoom(snap, g.seed())
	if err != nil {
		return err
	}
	if err := sess.Bind(roomID, playerID); err != nil {
		g.rooms.RemoveRoom(roomID)
		return state.Reject(CodeAlreadyInRoom, "connection already plays in room %s", sess.RoomID())
	}
	r.AddSession(sess)
	g.monitor.SetActiveRooms(g.rooms.Count())
	g.monitor.IncPhaseTransition(string(models.PhaseLobby))
	logger.Log.Infow("room created", "room", roomID, "host", playerID, "account", req.AccountID)

	return g.send(sess, network.MsgTypeRoomCreated, network.RoomCreatedEvent{
		View:     view.For(snap, playerID),
		PlayerID: playerID,
	})
}

func (g *Gateway) joinRoom(sess *session.Session, data []byte) error {
	if sess.PlayerID() != "" {
		return state.Reject(CodeAlreadyInRoom, "connection already plays in room %s", sess.RoomID())
	}
	var req network.JoinRoomRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, ok := g.rooms.GetRoom(req.RoomID)
	if !ok {
		return state.Reject(CodeRoomNotFound, "room %s not found", req.RoomID)
	}

	playerID := g.newID()
	player := models.Player{ID: playerID, AccountID: req.AccountID, Name: req.DisplayName}

	var bindErr error
	_, err := r.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		return state.Join(cur, player)
	}, g.commit(r, func(next models.RoomSnapshot) {
		if bindErr = sess.Bind(r.ID, playerID); bindErr != nil {
			return
		}
		r.AddSession(sess)
		if err := g.send(sess, network.MsgTypePlayerJoined, network.PlayerJoinedEvent{
			View:     view.For(next, playerID),
			PlayerID: playerID,
		}); err != nil {
			logger.Log.Debugw("player joined reply failed", "session", sess.ID, "error", err)
		}
	}))
	if err != nil {
		return g.roomError(r, err)
	}
	if bindErr != nil {
		logger.Log.Warnw("joined player left unbound", "room", r.ID, "player", playerID, "error", bindErr)
	}
	return nil
}

func (g *Gateway) startRoom(sess *session.Session, data []byte) error {
	var req network.PlayerRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	return g.mutate(r, func(cur models.RoomSnapshot, rng state.Rand) (models.RoomSnapshot, error) {
		return state.Start(cur, req.PlayerID, g.now(), rng)
	}, nil)
}

func (g *Gateway) leaveRoom(sess *session.Session, data []byte) error {
	var req network.PlayerRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}

	next, err := r.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		return state.Leave(cur, req.PlayerID)
	}, g.commit(r, func(models.RoomSnapshot) {
		sess.Unbind()
		r.RemoveSession(sess.ID)
	}))
	if err != nil {
		return g.roomError(r, err)
	}
	g.dropIfEmpty(r, next)
	return nil
}

func (g *Gateway) nightVote(sess *session.Session, data []byte) error {
	var req network.TargetRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	return g.mutate(r, func(cur models.RoomSnapshot, rng state.Rand) (models.RoomSnapshot, error) {
		next, err := state.SubmitNightVote(cur, req.PlayerID, req.TargetID)
		if err != nil || !state.NightComplete(next) {
			return next, err
		}
		return state.ResolveNight(next, g.now(), rng)
	}, nil)
}

func (g *Gateway) nominate(sess *session.Session, data []byte) error {
	var req network.TargetRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	return g.mutate(r, func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		return state.Nominate(cur, req.PlayerID, req.TargetID, g.now())
	}, nil)
}

func (g *Gateway) verdictVote(sess *session.Session, data []byte) error {
	var req network.VerdictRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	return g.mutate(r, func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		next, err := state.SubmitVerdict(cur, req.PlayerID, models.Verdict(req.Choice))
		if err != nil || !state.VerdictComplete(next) {
			return next, err
		}
		return state.ResolveVerdict(next, g.now())
	}, nil)
}

func (g *Gateway) accusedChat(sess *session.Session, data []byte) error {
	var req network.ChatRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}

	var rejected error
	err = r.Read(func(snap models.RoomSnapshot) {
		text, err := chat.ResolveAccused(snap, req.PlayerID, req.Text)
		if err != nil {
			rejected = err
			return
		}
		payload, err := json.Marshal(network.AccusedChatEvent{
			RoomID:    r.ID,
			PlayerID:  req.PlayerID,
			Text:      text,
			Timestamp: g.now().UnixMilli(),
		})
		if err != nil {
			rejected = err
			return
		}
		g.broadcaster.BroadcastToPlayers(r, network.MsgTypeAccusedChatBroadcast, payload, nil)
	})
	if err != nil {
		return g.roomError(r, err)
	}
	if rejected == nil {
		r.MarkActive()
	}
	return rejected
}

func (g *Gateway) chat(sess *session.Session, data []byte) error {
	var req network.ChatRequest
	if err := g.decode(data, &req); err != nil {
		return err
	}
	r, err := g.authorize(sess, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}

	var rejected error
	err = r.Read(func(snap models.RoomSnapshot) {
		sender, _, ok := snap.FindPlayer(req.PlayerID)
		if !ok {
			rejected = state.Reject(state.CodePlayerNotFound, "player %s is not in room %s", req.PlayerID, r.ID)
			return
		}
		route, err := chat.Resolve(snap.Phase, sender.Role, sender.Alive)
		if err != nil {
			rejected = err
			return
		}
		text, err := chat.Normalize(req.Text)
		if err != nil {
			rejected = err
			return
		}
		payload, err := json.Marshal(network.ChatEvent{
			RoomID:    r.ID,
			PlayerID:  sender.ID,
			Name:      sender.Name,
			Channel:   string(route.Channel),
			Text:      text,
			Timestamp: g.now().UnixMilli(),
		})
		if err != nil {
			rejected = err
			return
		}
		g.broadcaster.BroadcastToPlayers(r, network.MsgTypeChatBroadcast, payload, func(playerID string) bool {
			p, _, ok := snap.FindPlayer(playerID)
			return ok && route.Includes(p)
		})
	})
	if err != nil {
		return g.roomError(r, err)
	}
	if rejected == nil {
		r.MarkActive()
	}
	return rejected
}

// authorize checks the payload identity against the connection's binding.
func (g *Gateway) authorize(sess *session.Session, roomID, playerID string) (*room.Room, error) {
	boundRoom, boundPlayer := sess.Identity()
	if boundPlayer == "" {
		return nil, state.Reject(CodeNotInRoom, "create or join a room first")
	}
	if roomID != boundRoom {
		return nil, state.Reject(CodeRoomMismatch, "payload references another room")
	}
	if playerID != boundPlayer {
		return nil, state.Reject(CodeIdentityMismatch, "cannot act on behalf of another player")
	}
	r, ok := g.rooms.GetRoom(boundRoom)
	if !ok {
		return nil, state.Reject(CodeRoomNotFound, "room %s not found", boundRoom)
	}
	return r, nil
}

// mutate applies a player-driven transition and counts it as room activity.
func (g *Gateway) mutate(r *room.Room, fn room.Transition, pre func(next models.RoomSnapshot)) error {
	if _, err := r.Apply(fn, g.commit(r, pre)); err != nil {
		return g.roomError(r, err)
	}
	r.MarkActive()
	return nil
}

// commit runs inside the room's critical section after every accepted
// transition: pre first, then bookkeeping, deadline reset and fan-out.
func (g *Gateway) commit(r *room.Room, pre func(next models.RoomSnapshot)) func(prev, next models.RoomSnapshot) {
	return func(prev, next models.RoomSnapshot) {
		if pre != nil {
			pre(next)
		}
		if err := state.CheckInvariants(next); err != nil {
			logger.Log.Errorw("snapshot invariant violated", "room", r.ID, "phase", next.Phase, "error", err)
		}
		if prev.Phase != next.Phase {
			g.monitor.IncPhaseTransition(string(next.Phase))
			logger.Log.Debugw("phase changed", "room", r.ID, "from", prev.Phase, "to", next.Phase,
				"day", next.DayNumber, "night", next.NightNumber)
		}

		g.schedule(r, next)
		g.broadcaster.BroadcastState(r, next)

		if prev.Phase != models.PhaseGameOver && next.Phase == models.PhaseGameOver {
			g.finished(next)
		}
	}
}

func (g *Gateway) schedule(r *room.Room, next models.RoomSnapshot) {
	if !next.Phase.Timed() || next.PhaseEndsAt.IsZero() {
		r.Deadline().Stop()
		return
	}
	phase, endsAt := next.Phase, next.PhaseEndsAt
	r.Deadline().Reset(endsAt.Sub(g.now()), func() {
		g.onDeadline(r, phase, endsAt)
	})
}

// onDeadline applies the timeout transition for (phase, endsAt). Firings
// that lost a race with player input are dropped silently.
func (g *Gateway) onDeadline(r *room.Room, phase models.Phase, endsAt time.Time) {
	_, err := r.Apply(func(cur models.RoomSnapshot, rng state.Rand) (models.RoomSnapshot, error) {
		if cur.Phase != phase || !cur.PhaseEndsAt.Equal(endsAt) {
			return cur, errStaleDeadline
		}
		return state.Timeout(cur, g.now(), rng)
	}, g.commit(r, nil))
	if err != nil {
		logger.Log.Debugw("deadline ignored", "room", r.ID, "phase", phase, "reason", err)
	}
}

func (g *Gateway) finished(snap models.RoomSnapshot) {
	winner := string(*snap.Winner)
	g.monitor.IncGamesFinished(winner)
	logger.Log.Infow("game over", "room", snap.ID, "winner", winner, "days", snap.DayNumber)

	if g.archiver == nil {
		return
	}
	endedAt := g.now()
	g.archives.Add(1)
	go func() {
		defer g.archives.Done()
		if err := g.archiver.RecordFinishedGame(context.Background(), snap, endedAt); err != nil {
			logger.Log.Errorw("archive game failed", "room", snap.ID, "error", err)
		}
	}()
}

func (g *Gateway) dropIfEmpty(r *room.Room, snap models.RoomSnapshot) {
	if snap.Phase == models.PhaseLobby && len(snap.Players) == 0 {
		g.rooms.RemoveRoom(r.ID)
		g.monitor.SetActiveRooms(g.rooms.Count())
		logger.Log.Infow("empty lobby closed", "room", r.ID)
	}
}

func (g *Gateway) roomError(r *room.Room, err error) error {
	if errors.Is(err, room.ErrRoomClosed) {
		return state.Reject(CodeRoomNotFound, "room %s is closed", r.ID)
	}
	return err
}

func (g *Gateway) decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return state.Reject(CodeMalformedPayload, "invalid JSON payload")
	}
	if err := g.validate.Struct(v); err != nil {
		return state.Reject(CodeMalformedPayload, "%s", err.Error())
	}
	return nil
}

func (g *Gateway) send(sess *session.Session, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sess.Send(msgID, data)
}

func (g *Gateway) fail(sess *session.Session, err error) {
	ev := network.ErrorEvent{Code: string(CodeInternal), Message: "internal error"}
	if r, ok := state.AsRejection(err); ok {
		ev = network.ErrorEvent{Code: string(r.Code), Message: r.Message}
	} else {
		logger.Log.Errorw("action failed", "session", sess.ID, "error", err)
	}
	g.monitor.IncRejected(ev.Code)

	if sendErr := g.send(sess, network.MsgTypeError, ev); sendErr != nil {
		logger.Log.Debugw("error reply failed", "session", sess.ID, "error", sendErr)
	}
}
