package playback

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the playhead as seen by callers
type State struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	IsPlaying   bool    `json:"is_playing"`
	Speed       float64 `json:"speed"`
}

type Options struct {
	Speed    float64
	MinSpeed float64
	MaxSpeed float64
	SkipStep float64          // seconds moved by SkipBack/SkipForward
	Now      func() time.Time // clock used to measure tick intervals
}

// RedrawFunc renders the frame for a playhead time. It runs with the
// controller locked and must not call back into the controller.
type RedrawFunc func(at float64)

// Controller owns the playhead. Commands and ticks are serialized, so a tick
// that arrives after Pause or Close is dropped instead of drawing.
type Controller struct {
	mu sync.Mutex

	duration float64
	current  float64
	playing  bool
	closed   bool
	speed    float64
	opts     Options

	scheduler Scheduler
	cancel    func()
	gen       uint64
	lastTick  time.Time

	redraw RedrawFunc
	logger zerolog.Logger
}

func NewController(duration float64, scheduler Scheduler, redraw RedrawFunc, opts Options, logger zerolog.Logger) *Controller {
	if opts.MinSpeed <= 0 {
		opts.MinSpeed = 0.25
	}
	if opts.MaxSpeed < opts.MinSpeed {
		opts.MaxSpeed = 2
	}
	if opts.SkipStep <= 0 {
		opts.SkipStep = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if redraw == nil {
		redraw = func(float64) {}
	}

	c := &Controller{
		duration:  math.Max(duration, 0),
		opts:      opts,
		scheduler: scheduler,
		redraw:    redraw,
		logger:    logger,
	}
	c.speed = c.clampSpeed(opts.Speed)
	return c
}

// State returns a snapshot of the playhead
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		CurrentTime: c.current,
		Duration:    c.duration,
		IsPlaying:   c.playing,
		Speed:       c.speed,
	}
}

// Play starts advancing the playhead. At the end it rewinds to 0 first.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && !c.playing {
		c.playLocked()
	}
}

// Pause stops the playhead and cancels the pending tick
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && c.playing {
		c.pauseLocked()
	}
}

// Toggle switches between playing and paused
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.playing {
		c.pauseLocked()
		return
	}
	c.playLocked()
}

func (c *Controller) playLocked() {
	if c.current >= c.duration {
		c.current = 0
	}
	if c.duration == 0 {
		return
	}

	c.playing = true
	c.lastTick = c.opts.Now()
	c.gen++
	gen := c.gen
	c.cancel = c.scheduler.Start(func(now time.Time) {
		c.tick(gen, now)
	})

	c.logger.Debug().Float64("at", c.current).Msg("playback started")
	c.redraw(c.current)
}

func (c *Controller) pauseLocked() {
	c.stop()
	c.logger.Debug().Float64("at", c.current).Msg("playback paused")
	c.redraw(c.current)
}

// Seek moves the playhead, clamped to [0, duration]. The play state is kept,
// except that seeking to the end while playing stops playback.
func (c *Controller) Seek(at float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.seekLocked(at)
}

// SkipBack moves the playhead back by the skip step
func (c *Controller) SkipBack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.seekLocked(c.current - c.opts.SkipStep)
	}
}

// SkipForward moves the playhead forward by the skip step
func (c *Controller) SkipForward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.seekLocked(c.current + c.opts.SkipStep)
	}
}

// SetSpeed changes the playback rate, clamped to the configured range
func (c *Controller) SetSpeed(speed float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = c.clampSpeed(speed)
	return c.speed
}

// SetDuration adopts a new timeline length, clamping the playhead into it
func (c *Controller) SetDuration(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.duration = math.Max(d, 0)
	c.seekLocked(c.current)
}

// Close cancels any scheduled tick. The controller ignores all commands afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stop()
	c.closed = true
}

func (c *Controller) seekLocked(at float64) {
	if math.IsNaN(at) || at < 0 {
		at = 0
	}
	if at > c.duration {
		at = c.duration
	}
	c.current = at
	c.lastTick = c.opts.Now()

	if c.playing && c.current >= c.duration {
		c.stop()
	}
	c.redraw(c.current)
}

func (c *Controller) tick(gen uint64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.playing || gen != c.gen {
		return
	}

	elapsed := now.Sub(c.lastTick).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	c.lastTick = now
	c.current += elapsed * c.speed

	if c.current >= c.duration {
		c.current = c.duration
		c.stop()
		c.logger.Debug().Msg("playback reached the end")
	}
	c.redraw(c.current)
}

func (c *Controller) stop() {
	c.playing = false
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) clampSpeed(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Min(math.Max(s, c.opts.MinSpeed), c.opts.MaxSpeed)
}
