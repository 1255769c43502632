package guard

import (
	"container/heap"
	"sync"
	"time"
)

// scheduler runs deferred tasks from a single goroutine over a min-heap of
// due times, instead of one sleeping goroutine per session.
type scheduler struct {
	mu    sync.Mutex
	tasks taskHeap
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type task struct {
	at time.Time
	fn func()
}

func newScheduler() *scheduler {
	s := &scheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *scheduler) schedule(at time.Time, fn func()) {
	s.mu.Lock()
	heap.Push(&s.tasks, task{at: at, fn: fn})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *scheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration
		if len(s.tasks) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.tasks[0].at)
		}
		s.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.done:
			return
		case <-s.wake:
		case <-timer.C:
			s.runDue()
		}
	}
}

func (s *scheduler) runDue() {
	now := time.Now()

	for {
		s.mu.Lock()
		if len(s.tasks) == 0 || s.tasks[0].at.After(now) {
			s.mu.Unlock()
			return
		}
		due := heap.Pop(&s.tasks).(task)
		s.mu.Unlock()

		due.fn()
	}
}

type taskHeap []task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
