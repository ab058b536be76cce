package timer

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	id       int64
	execute  time.Time
	interval time.Duration
	callback func()
	index    int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].execute.Before(q[j].execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Scheduler runs one-shot and periodic housekeeping jobs such as the idle
// room sweep. Due jobs are collected once per tick; phase deadlines use
// Deadline instead.
type Scheduler struct {
	queue  taskQueue
	mutex  sync.Mutex
	nextID int64
	tick   time.Duration
	done   chan struct{}
	once   sync.Once
}

// NewScheduler starts a scheduler that checks for due jobs every tick.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	s := &Scheduler{
		queue:  make(taskQueue, 0),
		nextID: 1,
		tick:   tick,
		done:   make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.process()
	return s
}

// After runs fn once after delay and returns the job id.
func (s *Scheduler) After(delay time.Duration, fn func()) int64 {
	return s.add(delay, 0, fn)
}

// Every runs fn every interval, starting one interval from now.
func (s *Scheduler) Every(interval time.Duration, fn func()) int64 {
	return s.add(interval, interval, fn)
}

func (s *Scheduler) add(delay, interval time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t := &task{
		id:       s.nextID,
		execute:  time.Now().Add(delay),
		interval: interval,
		callback: fn,
	}
	s.nextID++
	heap.Push(&s.queue, t)
	return t.id
}

// Cancel removes a job. Unknown ids are ignored.
func (s *Scheduler) Cancel(id int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, t := range s.queue {
		if t.id == id {
			heap.Remove(&s.queue, i)
			return
		}
	}
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

// Stop terminates the scheduler loop. Pending jobs never run.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) process() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, fn := range s.due(now) {
				go fn()
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) due(now time.Time) []func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ready []func()
	for s.queue.Len() > 0 {
		t := s.queue[0]
		if t.execute.After(now) {
			break
		}
		heap.Pop(&s.queue)
		ready = append(ready, t.callback)

		if t.interval > 0 {
			t.execute = now.Add(t.interval)
			heap.Push(&s.queue, t)
		}
	}
	return ready
}
