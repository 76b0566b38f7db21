package host

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs fn repeatedly until the returned stop function is called.
// Stop functions must be idempotent and safe to call from within fn.
type Scheduler interface {
	Every(every time.Duration, fn func()) (stop func())
}

// TickerScheduler backs intervals with time.Ticker goroutines. Stopping does
// not wait for a callback that is already running; no new callback starts
// after stop returns.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(every time.Duration, fn func()) func() {
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	var stopped atomic.Bool
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if stopped.Load() {
					return
				}
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			close(done)
		})
	}
}

// ManualScheduler is a deterministic Scheduler driven by Advance. Callbacks
// run on the goroutine calling Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	id    int
	every time.Duration
	next  time.Duration
	fn    func()
}

// NewManualScheduler returns a scheduler positioned at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{timers: map[int]*manualTimer{}}
}

// Every implements Scheduler.
func (s *ManualScheduler) Every(every time.Duration, fn func()) func() {
	if every <= 0 {
		every = time.Millisecond
	}
	s.mu.Lock()
	if s.timers == nil {
		s.timers = map[int]*manualTimer{}
	}
	s.nextID++
	id := s.nextID
	s.timers[id] = &manualTimer{id: id, every: every, next: s.now + every, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every due interval in time
// order. Timers stopped by a callback do not fire again.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	for {
		due := s.nextDue(target)
		if due == nil {
			break
		}
		s.now = due.next
		due.next += due.every
		fn := due.fn
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

// Active reports the number of live intervals.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Elapsed reports the virtual time advanced so far.
func (s *ManualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	candidates := make([]*manualTimer, 0, len(s.timers))
	for _, timer := range s.timers {
		if timer.next <= target {
			candidates = append(candidates, timer)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].next == candidates[j].next {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].next < candidates[j].next
	})
	return candidates[0]
}
