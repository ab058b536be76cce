// room/room.go
package room

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/session"
	"github.com/wfunc/traitorserver/state"
	"github.com/wfunc/traitorserver/timer"
)

var (
	ErrRoomExists = errors.New("room already exists")
	ErrRoomClosed = errors.New("room closed")
)

// Transition computes the next snapshot from the current one.
type Transition func(cur models.RoomSnapshot, rng state.Rand) (models.RoomSnapshot, error)

// Room 是游戏房间的核心结构: 当前快照、随机源、阶段计时器以及绑定的连接
type Room struct {
	ID        string
	CreatedAt time.Time

	snapshot   models.RoomSnapshot
	rng        *rand.Rand
	deadline   timer.Deadline
	updatedAt  time.Time
	closed     bool
	stateMutex sync.Mutex

	sessions    map[string]*session.Session // sessionID -> session
	activeAt    time.Time                   // last player input or (un)binding
	playerMutex sync.RWMutex
}

// NewRoom 创建一个新房间
func NewRoom(snap models.RoomSnapshot, seed int64) *Room {
	now := time.Now()
	return &Room{
		ID:        snap.ID,
		CreatedAt: now,
		snapshot:  snap,
		rng:       rand.New(rand.NewSource(seed)),
		updatedAt: now,
		sessions:  make(map[string]*session.Session),
		activeAt:  now,
	}
}

// Snapshot returns a copy of the current snapshot.
func (r *Room) Snapshot() models.RoomSnapshot {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.snapshot.Clone()
}

// Apply runs fn against the current snapshot inside the room's critical
// section. On success the result is stored and after, if given, runs while
// the section is still held. A rejected transition leaves the stored snapshot
// untouched and returns it.
func (r *Room) Apply(fn Transition, after func(prev, next models.RoomSnapshot)) (models.RoomSnapshot, error) {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()

	if r.closed {
		return models.RoomSnapshot{}, ErrRoomClosed
	}

	prev := r.snapshot
	next, err := fn(prev.Clone(), r.rng)
	if err != nil {
		return prev.Clone(), err
	}
	r.snapshot = next
	r.updatedAt = time.Now()

	if after != nil {
		after(prev, next.Clone())
	}
	return next.Clone(), nil
}

// Read runs fn with the current snapshot inside the critical section, for
// work that must not interleave with a transition but changes nothing.
func (r *Room) Read(fn func(snap models.RoomSnapshot)) error {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	fn(r.snapshot.Clone())
	return nil
}

// Deadline is the room's single phase timer.
func (r *Room) Deadline() *timer.Deadline {
	return &r.deadline
}

// UpdatedAt is when the snapshot last changed.
func (r *Room) UpdatedAt() time.Time {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.updatedAt
}

// Closed reports whether the room has been shut down.
func (r *Room) Closed() bool {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.closed
}

// AddSession 绑定一个连接到房间
func (r *Room) AddSession(s *session.Session) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	r.sessions[s.ID] = s
	r.activeAt = time.Now()
}

// RemoveSession 从房间解绑一个连接
func (r *Room) RemoveSession(sessionID string) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	delete(r.sessions, sessionID)
	r.activeAt = time.Now()
}

// MarkActive records player input. Timer-driven transitions do not call it,
// so a game nobody is playing still ages out.
func (r *Room) MarkActive() {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	r.activeAt = time.Now()
}

// ActiveAt is when a player last acted or a connection last (un)bound.
func (r *Room) ActiveAt() time.Time {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return r.activeAt
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) SessionCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.sessions)
}

// Close 关闭房间: 停止计时器, 之后的 Apply 返回 ErrRoomClosed
func (r *Room) Close() {
	r.stateMutex.Lock()
	r.closed = true
	r.stateMutex.Unlock()
	r.deadline.Stop()
}

// idle reports whether the room can be evicted: no player activity for ttl
// and either finished or abandoned by every connection.
func (r *Room) idle(now time.Time, ttl time.Duration) bool {
	r.stateMutex.Lock()
	phase := r.snapshot.Phase
	r.stateMutex.Unlock()

	r.playerMutex.RLock()
	stale := now.Sub(r.activeAt) >= ttl
	empty := len(r.sessions) == 0
	r.playerMutex.RUnlock()

	return stale && (phase == models.PhaseGameOver || empty)
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom 创建一个新房间并添加到管理器
func (m *Manager) CreateRoom(snap models.RoomSnapshot, seed int64) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[snap.ID]; exists {
		return nil, ErrRoomExists
	}
	room := NewRoom(snap, seed)
	m.rooms[snap.ID] = room
	return room, nil
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) bool {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if exists {
		room.Close()
	}
	return exists
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Rooms returns every registered room.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Sweep evicts and closes rooms idle for at least ttl.
func (m *Manager) Sweep(now time.Time, ttl time.Duration) []*Room {
	var removed []*Room
	for _, r := range m.Rooms() {
		if r.idle(now, ttl) && m.RemoveRoom(r.ID) {
			removed = append(removed, r)
		}
	}
	return removed
}
