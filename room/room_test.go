package room

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/network"
	"github.com/wfunc/traitorserver/session"
	"github.com/wfunc/traitorserver/state"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

// newTestSession creates a dummy session for testing purposes.
func newTestSession(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

func newLobby(id string) models.RoomSnapshot {
	return state.NewLobby(id, models.Player{ID: "host", AccountID: "acct-host", Name: "Host"}, models.GameConfig{MinPlayers: 3})
}

func bumpDay(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
	cur.DayNumber++
	return cur, nil
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager()

	roomID := "test_room_1"
	room, err := manager.CreateRoom(newLobby(roomID), 1)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}

	if _, err := manager.CreateRoom(newLobby(roomID), 2); !errors.Is(err, ErrRoomExists) {
		t.Errorf("Expected ErrRoomExists for a duplicate id, got %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", manager.Count())
	}
}

func TestRoom_ApplyStoresResult(t *testing.T) {
	room := NewRoom(newLobby("r"), 1)

	var seen []int
	next, err := room.Apply(bumpDay, func(prev, next models.RoomSnapshot) {
		seen = append(seen, prev.DayNumber, next.DayNumber)
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if next.DayNumber != 1 || room.Snapshot().DayNumber != 1 {
		t.Errorf("Expected day 1 to be stored, got %d", room.Snapshot().DayNumber)
	}
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("Expected after hook to see 0 -> 1, got %v", seen)
	}
}

func TestRoom_ApplyRejectionKeepsSnapshot(t *testing.T) {
	room := NewRoom(newLobby("r"), 1)
	before := room.Snapshot()

	called := false
	_, err := room.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		cur.Players = nil
		return cur, state.Reject(state.CodeWrongPhase, "nope")
	}, func(prev, next models.RoomSnapshot) { called = true })

	if !state.IsCode(err, state.CodeWrongPhase) {
		t.Fatalf("Expected WRONG_PHASE, got %v", err)
	}
	if called {
		t.Error("after hook must not run for a rejected transition")
	}
	if len(room.Snapshot().Players) != len(before.Players) {
		t.Error("rejected transition changed the stored snapshot")
	}
}

func TestRoom_ApplySerializes(t *testing.T) {
	room := NewRoom(newLobby("r"), 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := room.Apply(bumpDay, nil); err != nil {
				t.Errorf("Apply failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := room.Snapshot().DayNumber; got != 100 {
		t.Errorf("Expected 100 serialized increments, got %d", got)
	}
}

func TestRoom_Read(t *testing.T) {
	room := NewRoom(newLobby("r"), 1)

	var phase models.Phase
	if err := room.Read(func(snap models.RoomSnapshot) {
		phase = snap.Phase
		snap.Players[0].Name = "changed"
	}); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if phase != models.PhaseLobby {
		t.Errorf("Expected phase LOBBY, got %s", phase)
	}
	if room.Snapshot().Players[0].Name != "Host" {
		t.Error("Read must hand out a copy")
	}
}

func TestRoom_Sessions(t *testing.T) {
	room := NewRoom(newLobby("r"), 1)
	s1 := newTestSession("s1")
	s2 := newTestSession("s2")

	room.AddSession(s1)
	room.AddSession(s2)
	room.AddSession(s1)
	if room.SessionCount() != 2 {
		t.Fatalf("Expected 2 sessions, got %d", room.SessionCount())
	}

	room.RemoveSession("s1")
	sessions := room.GetSessions()
	if len(sessions) != 1 || sessions[0] != s2 {
		t.Errorf("Expected only s2 to remain, got %v", sessions)
	}
	room.RemoveSession("missing")
}

func TestRoomManager_RemoveRoomCloses(t *testing.T) {
	manager := NewRoomManager()
	room, _ := manager.CreateRoom(newLobby("r"), 1)

	fired := make(chan struct{}, 1)
	room.Deadline().Reset(20*time.Millisecond, func() { fired <- struct{}{} })

	if !manager.RemoveRoom("r") {
		t.Fatal("RemoveRoom should report the room existed")
	}
	if manager.RemoveRoom("r") {
		t.Error("second RemoveRoom should report nothing removed")
	}
	if !room.Closed() {
		t.Error("removed room should be closed")
	}
	if err := room.Read(func(models.RoomSnapshot) {}); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed from Read, got %v", err)
	}
	if _, err := room.Apply(bumpDay, nil); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}

	select {
	case <-fired:
		t.Error("deadline of a closed room fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoomManager_Sweep(t *testing.T) {
	manager := NewRoomManager()

	abandoned, _ := manager.CreateRoom(newLobby("abandoned"), 1)
	occupied, _ := manager.CreateRoom(newLobby("occupied"), 2)
	occupied.AddSession(newTestSession("s1"))
	finished, _ := manager.CreateRoom(newLobby("finished"), 3)
	finished.AddSession(newTestSession("s2"))
	if _, err := finished.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		w := models.WinnerDraw
		cur.Phase = models.PhaseGameOver
		cur.Winner = &w
		return cur, nil
	}, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if removed := manager.Sweep(time.Now(), time.Hour); len(removed) != 0 {
		t.Errorf("Expected nothing evicted before the ttl, got %v", removed)
	}

	removed := manager.Sweep(time.Now().Add(2*time.Hour), time.Hour)
	if len(removed) != 2 {
		t.Fatalf("Expected 2 rooms evicted, got %v", removed)
	}
	if _, ok := manager.GetRoom("occupied"); !ok {
		t.Error("an occupied, unfinished room must survive the sweep")
	}
	if !abandoned.Closed() || !finished.Closed() {
		t.Error("evicted rooms should be closed")
	}
}

func TestRoomManager_SweepIgnoresTimerTransitions(t *testing.T) {
	manager := NewRoomManager()
	r, _ := manager.CreateRoom(newLobby("abandoned"), 1)
	r.AddSession(newTestSession("s1"))
	r.RemoveSession("s1")

	time.Sleep(30 * time.Millisecond)
	// a phase timeout rewrites the snapshot but is not player activity
	if _, err := r.Apply(func(cur models.RoomSnapshot, _ state.Rand) (models.RoomSnapshot, error) {
		cur.Phase = models.PhaseNight
		return cur, nil
	}, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !r.UpdatedAt().After(r.ActiveAt()) {
		t.Fatalf("Expected the snapshot to change after the last activity")
	}

	removed := manager.Sweep(time.Now(), 20*time.Millisecond)
	if len(removed) != 1 || removed[0] != r {
		t.Fatalf("Expected the abandoned in-progress room evicted, got %v", removed)
	}
}

func TestRoom_MarkActiveDefersEviction(t *testing.T) {
	manager := NewRoomManager()
	r, _ := manager.CreateRoom(newLobby("busy"), 1)

	time.Sleep(30 * time.Millisecond)
	r.MarkActive()
	if removed := manager.Sweep(time.Now(), 20*time.Millisecond); len(removed) != 0 {
		t.Errorf("Expected a room with fresh player input to stay, got %v", removed)
	}
	if removed := manager.Sweep(time.Now().Add(time.Hour), 20*time.Millisecond); len(removed) != 1 {
		t.Errorf("Expected the room evicted once input stops, got %v", removed)
	}
}
