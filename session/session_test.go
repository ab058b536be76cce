package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/traitorserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent   []uint16
	closed bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { m.closed = true; return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_InRoom(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	require.NoError(t, sess1.Bind("room-a", "p1"))
	sess2 := NewSession("session2", &MockConnection{})
	require.NoError(t, sess2.Bind("room-b", "p2"))
	sess3 := NewSession("session3", &MockConnection{})
	require.NoError(t, sess3.Bind("room-a", "p3"))
	sess4 := NewSession("session4", &MockConnection{})

	for _, s := range []*Session{sess1, sess2, sess3, sess4} {
		manager.Add(s)
	}

	assert.Len(t, manager.InRoom("room-a"), 2)
	assert.Len(t, manager.InRoom("room-b"), 1)
	assert.Empty(t, manager.InRoom("room-c"))
}

func TestSession_Bind(t *testing.T) {
	sess := NewSession("s", &MockConnection{})

	roomID, playerID := sess.Identity()
	assert.Empty(t, roomID)
	assert.Empty(t, playerID)

	require.NoError(t, sess.Bind("room-1", "p1"))
	assert.Equal(t, "room-1", sess.RoomID())
	assert.Equal(t, "p1", sess.PlayerID())

	assert.ErrorIs(t, sess.Bind("room-2", "p9"), ErrAlreadyBound)
	assert.Equal(t, "room-1", sess.RoomID(), "a failed bind keeps the old identity")

	roomID, playerID = sess.Unbind()
	assert.Equal(t, "room-1", roomID)
	assert.Equal(t, "p1", playerID)
	assert.Empty(t, sess.PlayerID())
	require.NoError(t, sess.Bind("room-2", "p9"))
}

func TestSession_RateLimit(t *testing.T) {
	sess := NewSession("s", &MockConnection{})
	for i := 0; i < 100; i++ {
		require.True(t, sess.Allow(), "unlimited by default")
	}

	sess.SetRateLimit(1, 3)
	allowed := 0
	for i := 0; i < 10; i++ {
		if sess.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed, "only the burst passes at once")

	sess.SetRateLimit(0, 0)
	assert.True(t, sess.Allow())
}

func TestSession_OnlyInboundCountsAsActivity(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s", conn)
	before := sess.LastActive()

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, sess.Send(303, []byte("{}")))
	assert.Equal(t, before, sess.LastActive(), "outbound broadcasts must not keep a silent client alive")
	assert.Equal(t, []uint16{303}, conn.sent)

	manager := NewManager()
	manager.Add(sess)
	cutoff := time.Now()
	assert.Len(t, manager.Idle(cutoff), 1)

	time.Sleep(2 * time.Millisecond)
	sess.Touch()
	assert.True(t, sess.LastActive().After(before))
	assert.Empty(t, manager.Idle(cutoff))

	require.NoError(t, sess.Close())
	assert.True(t, conn.closed)
}
