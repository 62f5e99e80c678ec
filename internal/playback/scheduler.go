package playback

import (
	"sync"
	"time"
)

// Scheduler invokes a tick callback once per display refresh until cancelled.
// Ticks from one Start are delivered sequentially, never concurrently.
type Scheduler interface {
	Start(tick func(now time.Time)) (cancel func())
}

// TickerScheduler drives ticks from a time.Ticker at a fixed frame rate
type TickerScheduler struct {
	interval time.Duration
}

func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TickerScheduler{interval: time.Second / time.Duration(fps)}
}

func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// Start returns a cancel that is safe to call more than once and from inside tick
func (s *TickerScheduler) Start(tick func(now time.Time)) func() {
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				tick(now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler delivers ticks only when Fire is called
type ManualScheduler struct {
	mu     sync.Mutex
	tick   func(time.Time)
	starts int
}

func (s *ManualScheduler) Start(tick func(now time.Time)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.tick = tick
	id := s.starts
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.starts == id {
			s.tick = nil
		}
	}
}

// Fire delivers one tick if a callback is pending
func (s *ManualScheduler) Fire(now time.Time) bool {
	s.mu.Lock()
	tick := s.tick
	s.mu.Unlock()
	if tick == nil {
		return false
	}
	tick(now)
	return true
}

// Active reports whether a callback is scheduled
func (s *ManualScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick != nil
}
