package sim

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/encodeous/lsr/state"
)

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// Simulator is a discrete event scheduler with a virtual clock. Events scheduled for the same instant run in
// the order they were scheduled.
type Simulator struct {
	now       time.Duration
	seq       uint64
	queue     eventQueue
	processed int
}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Now() time.Duration {
	return s.now
}

func (s *Simulator) Schedule(delay time.Duration, fn func()) {
	s.seq++
	heap.Push(&s.queue, event{at: s.now + max(delay, 0), seq: s.seq, fn: fn})
}

// Step runs the next event, and reports whether there was one
func (s *Simulator) Step() bool {
	if s.queue.Len() == 0 {
		return false
	}
	e := heap.Pop(&s.queue).(event)
	s.now = e.at
	s.processed++
	e.fn()
	return true
}

// RunUntil runs every event up to and including t, then moves the clock to t
func (s *Simulator) RunUntil(t time.Duration) error {
	start := s.processed
	for s.queue.Len() > 0 && s.queue[0].at <= t {
		if s.processed-start >= state.MaxSimEvents {
			return fmt.Errorf("simulation did not settle after %d events at %s", state.MaxSimEvents, s.now)
		}
		s.Step()
	}
	s.now = max(s.now, t)
	return nil
}

// Run runs until no events are left
func (s *Simulator) Run() error {
	start := s.processed
	for s.Step() {
		if s.processed-start >= state.MaxSimEvents {
			return fmt.Errorf("simulation did not settle after %d events at %s", state.MaxSimEvents, s.now)
		}
	}
	return nil
}

func (s *Simulator) Pending() int {
	return s.queue.Len()
}

func (s *Simulator) Processed() int {
	return s.processed
}

var _ state.Scheduler = (*Simulator)(nil)
