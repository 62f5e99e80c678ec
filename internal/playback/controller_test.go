package playback

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	ctrl   *Controller
	sched  *ManualScheduler
	clock  *fakeClock
	frames []float64
}

func newHarness(duration float64) *harness {
	h := &harness{
		sched: &ManualScheduler{},
		clock: &fakeClock{now: time.Unix(1000, 0)},
	}
	h.ctrl = NewController(duration, h.sched, func(at float64) {
		h.frames = append(h.frames, at)
	}, Options{Now: h.clock.Now}, zerolog.Nop())
	return h
}

// step advances the clock and delivers a tick
func (h *harness) step(d time.Duration) bool {
	return h.sched.Fire(h.clock.Advance(d))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInitialState(t *testing.T) {
	h := newHarness(13)
	s := h.ctrl.State()
	if s.CurrentTime != 0 || s.IsPlaying || s.Speed != 1 || s.Duration != 13 {
		t.Errorf("Unexpected initial state %+v", s)
	}
	if h.sched.Active() {
		t.Error("No tick should be scheduled before Play")
	}
}

func TestPlayAdvances(t *testing.T) {
	h := newHarness(13)
	h.ctrl.Play()

	if !h.ctrl.State().IsPlaying || !h.sched.Active() {
		t.Fatal("Expected playing with a scheduled tick")
	}

	h.step(500 * time.Millisecond)
	h.step(250 * time.Millisecond)

	if got := h.ctrl.State().CurrentTime; !approx(got, 0.75) {
		t.Errorf("Expected 0.75, got %v", got)
	}
	if len(h.frames) != 3 {
		t.Errorf("Expected redraw on play and each tick, got %d frames", len(h.frames))
	}
}

func TestSpeedScalesAdvance(t *testing.T) {
	h := newHarness(13)
	if got := h.ctrl.SetSpeed(2); got != 2 {
		t.Fatalf("Expected speed 2, got %v", got)
	}
	h.ctrl.Play()
	h.step(time.Second)

	if got := h.ctrl.State().CurrentTime; !approx(got, 2) {
		t.Errorf("Expected 2s at double speed, got %v", got)
	}
}

func TestSetSpeedClamp(t *testing.T) {
	h := newHarness(5)
	tests := []struct {
		in, want float64
	}{
		{0.25, 0.25},
		{0.1, 0.25},
		{1.5, 1.5},
		{5, 2},
		{-1, 1},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		if got := h.ctrl.SetSpeed(tt.in); got != tt.want {
			t.Errorf("SetSpeed(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReachEndPauses(t *testing.T) {
	h := newHarness(2)
	h.ctrl.Play()
	h.step(1500 * time.Millisecond)
	h.step(time.Second)

	s := h.ctrl.State()
	if s.IsPlaying {
		t.Error("Expected playback to stop at the end")
	}
	if s.CurrentTime != 2 {
		t.Errorf("Expected clamp to 2, got %v", s.CurrentTime)
	}
	if h.sched.Active() {
		t.Error("Tick still scheduled after reaching the end")
	}
	if h.frames[len(h.frames)-1] != 2 {
		t.Errorf("Last frame should be drawn at the end, got %v", h.frames[len(h.frames)-1])
	}
}

func TestPlayAtEndRewinds(t *testing.T) {
	h := newHarness(3)
	h.ctrl.Seek(3)
	h.ctrl.Play()

	s := h.ctrl.State()
	if s.CurrentTime != 0 || !s.IsPlaying {
		t.Errorf("Expected rewind to 0 and playing, got %+v", s)
	}
}

func TestPauseCancelsTick(t *testing.T) {
	h := newHarness(10)
	h.ctrl.Play()
	h.step(time.Second)
	h.ctrl.Pause()

	if h.sched.Active() {
		t.Error("Pause should cancel the scheduled tick")
	}
	h.clock.Advance(5 * time.Second)
	if got := h.ctrl.State().CurrentTime; !approx(got, 1) {
		t.Errorf("Paused playhead moved: %v", got)
	}

	// Resuming measures from the resume instant, not the pause
	h.ctrl.Play()
	h.step(500 * time.Millisecond)
	if got := h.ctrl.State().CurrentTime; !approx(got, 1.5) {
		t.Errorf("Expected 1.5 after resume, got %v", got)
	}
}

func TestStaleTickDropped(t *testing.T) {
	h := newHarness(10)
	var stale func(time.Time)
	sched := &captureScheduler{}
	ctrl := NewController(10, sched, nil, Options{Now: h.clock.Now}, zerolog.Nop())

	ctrl.Play()
	stale = sched.tick
	ctrl.Pause()
	ctrl.Play()

	stale(h.clock.Advance(time.Second))
	if got := ctrl.State().CurrentTime; got != 0 {
		t.Errorf("Tick from a cancelled run advanced the playhead to %v", got)
	}
	sched.tick(h.clock.Advance(time.Second))
	if got := ctrl.State().CurrentTime; !approx(got, 2) {
		t.Errorf("Expected current run to advance to 2, got %v", got)
	}
}

type captureScheduler struct {
	tick func(time.Time)
}

func (s *captureScheduler) Start(tick func(time.Time)) func() {
	s.tick = tick
	return func() {}
}

func TestToggle(t *testing.T) {
	h := newHarness(4)
	h.ctrl.Toggle()
	if !h.ctrl.State().IsPlaying {
		t.Error("Toggle from paused should play")
	}
	h.ctrl.Toggle()
	if h.ctrl.State().IsPlaying {
		t.Error("Toggle from playing should pause")
	}
}

func TestConcurrentTogglesPair(t *testing.T) {
	h := newHarness(4)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ctrl.Toggle()
		}()
	}
	wg.Wait()

	if h.ctrl.State().IsPlaying {
		t.Error("An even number of toggles should end paused")
	}
	if h.sched.Active() {
		t.Error("No tick should remain scheduled")
	}
	if len(h.frames) != n {
		t.Errorf("Expected one redraw per toggle, got %d", len(h.frames))
	}
}

func TestSeek(t *testing.T) {
	tests := []struct {
		name string
		at   float64
		want float64
	}{
		{"inside", 4.5, 4.5},
		{"negative", -3, 0},
		{"past end", 113, 13},
		{"nan", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(13)
			h.ctrl.Seek(tt.at)
			s := h.ctrl.State()
			if s.CurrentTime != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, s.CurrentTime)
			}
			if s.IsPlaying {
				t.Error("Seek must not start playback")
			}
			if len(h.frames) != 1 || h.frames[0] != tt.want {
				t.Errorf("Expected one redraw at %v, got %v", tt.want, h.frames)
			}
		})
	}
}

func TestSeekWhilePlaying(t *testing.T) {
	h := newHarness(13)
	h.ctrl.Play()
	h.ctrl.Seek(6)
	if !h.ctrl.State().IsPlaying {
		t.Error("Seek inside the timeline should keep playing")
	}

	h.step(500 * time.Millisecond)
	if got := h.ctrl.State().CurrentTime; !approx(got, 6.5) {
		t.Errorf("Expected 6.5 after seek and tick, got %v", got)
	}

	h.ctrl.Seek(113)
	s := h.ctrl.State()
	if s.IsPlaying || s.CurrentTime != 13 {
		t.Errorf("Seek past end while playing should clamp and stop, got %+v", s)
	}
}

func TestSkip(t *testing.T) {
	h := newHarness(5)
	h.ctrl.Seek(0.5)
	h.ctrl.SkipBack()
	if got := h.ctrl.State().CurrentTime; got != 0 {
		t.Errorf("SkipBack should clamp to 0, got %v", got)
	}

	h.ctrl.SkipForward()
	h.ctrl.SkipForward()
	if got := h.ctrl.State().CurrentTime; got != 2 {
		t.Errorf("Expected 2 after two forward skips, got %v", got)
	}

	h.ctrl.Seek(4.5)
	h.ctrl.SkipForward()
	if got := h.ctrl.State().CurrentTime; got != 5 {
		t.Errorf("SkipForward should clamp to the end, got %v", got)
	}
}

func TestSetDuration(t *testing.T) {
	h := newHarness(10)
	h.ctrl.Seek(8)
	h.ctrl.SetDuration(6)

	s := h.ctrl.State()
	if s.Duration != 6 || s.CurrentTime != 6 {
		t.Errorf("Expected playhead clamped into new duration, got %+v", s)
	}
}

func TestZeroDurationNeverPlays(t *testing.T) {
	h := newHarness(0)
	h.ctrl.Play()
	if h.ctrl.State().IsPlaying || h.sched.Active() {
		t.Error("Empty timeline must not start playback")
	}
}

func TestClose(t *testing.T) {
	h := newHarness(10)
	h.ctrl.Play()
	h.ctrl.Close()

	if h.sched.Active() {
		t.Error("Close should cancel the scheduled tick")
	}
	before := len(h.frames)

	h.ctrl.Play()
	h.ctrl.Seek(3)
	h.ctrl.SkipForward()
	if len(h.frames) != before {
		t.Error("Closed controller must not redraw")
	}
	h.ctrl.Close()
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(200)
	if s.Interval() != 5*time.Millisecond {
		t.Errorf("Expected 5ms interval, got %v", s.Interval())
	}

	ticks := make(chan time.Time, 16)
	cancel := s.Start(func(now time.Time) {
		select {
		case ticks <- now:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("No tick delivered")
	}
	cancel()
	cancel()
}

func TestTickerSchedulerDefaultRate(t *testing.T) {
	if got := NewTickerScheduler(0).Interval(); got != time.Second/60 {
		t.Errorf("Expected 60fps default, got %v", got)
	}
}
