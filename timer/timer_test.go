package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadline_Fires(t *testing.T) {
	var d Deadline
	var fired atomic.Int32

	d.Reset(10*time.Millisecond, func() { fired.Add(1) })
	at, pending := d.Pending()
	assert.True(t, pending)
	assert.False(t, at.IsZero())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	_, pending = d.Pending()
	assert.False(t, pending)
}

func TestDeadline_ResetReplaces(t *testing.T) {
	var d Deadline
	var first, second atomic.Int32

	d.Reset(20*time.Millisecond, func() { first.Add(1) })
	d.Reset(40*time.Millisecond, func() { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "a replaced trigger must never fire")
}

func TestDeadline_Stop(t *testing.T) {
	var d Deadline
	var fired atomic.Int32

	assert.False(t, d.Stop(), "nothing scheduled yet")

	d.Reset(20*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, d.Stop())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestDeadline_NegativeDelayFiresNow(t *testing.T) {
	var d Deadline
	done := make(chan struct{})
	d.Reset(-time.Second, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected an overdue deadline to fire immediately")
	}
}

func TestScheduler_AfterAndEvery(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	defer s.Stop()

	var once, periodic atomic.Int32
	s.After(10*time.Millisecond, func() { once.Add(1) })
	id := s.Every(10*time.Millisecond, func() { periodic.Add(1) })

	assert.Eventually(t, func() bool { return periodic.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), once.Load())
	assert.Equal(t, 1, s.Len(), "only the periodic job remains")

	s.Cancel(id)
	require.Equal(t, 0, s.Len())
	settled := periodic.Load()
	time.Sleep(40 * time.Millisecond)
	assert.LessOrEqual(t, periodic.Load(), settled+1)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(time.Millisecond)
	s.Stop()
	s.Stop()

	var fired atomic.Int32
	s.After(0, func() { fired.Add(1) })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
