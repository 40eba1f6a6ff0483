// Package clock drives the simulated time-of-day the whole service animates
// against. A single Clock owns the animation state (current time, playing
// flag, playback speed, loop flag) and advances it in proportion to real
// elapsed time while playing, independent of how often frames fire. Every
// tick reads the state it needs under the lock, so a speed or loop change
// made mid-playback takes effect on the very next tick.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
)

const (
	// DefaultFrameInterval is the target frame pacing (~60fps). Ticks that
	// arrive faster than this are skipped without touching state.
	DefaultFrameInterval = time.Second / 60

	// DefaultSpeed advances one simulated minute per real second.
	DefaultSpeed = 60

	// endOfDayEpsilon keeps the clamped end-of-day time inside [0, 1440).
	endOfDayEpsilon = 0.001
)

// State is the public animation state. CurrentTime is minutes from midnight
// in [0, 1440); Speed is the real-time multiplier (simulated minutes per
// real minute). Version increments on every state change so consumers can
// cheaply detect that something moved.
type State struct {
	CurrentTime float64 `json:"currentTime"`
	Playing     bool    `json:"playing"`
	Speed       float64 `json:"speed"`
	Loop        bool    `json:"loop"`
	Version     uint64  `json:"version"`
}

// Clock advances simulated time once per host frame while playing, and
// exposes the manual controls. All methods are safe for concurrent use; the
// HTTP layer calls controls from request goroutines while Run ticks in the
// background.
type Clock struct {
	mu            sync.Mutex
	state         State
	lastTick      time.Time // zero means the next processed tick only records its timestamp
	frameInterval time.Duration
	logger        *slog.Logger
}

// New creates a stopped Clock at midnight with the default speed.
func New(logger *slog.Logger) *Clock {
	c := &Clock{
		state: State{
			CurrentTime: 0,
			Playing:     false,
			Speed:       DefaultSpeed,
			Loop:        true,
		},
		frameInterval: DefaultFrameInterval,
		logger:        logger,
	}
	metrics.SetClockState(0, false, DefaultSpeed)
	return c
}

// Snapshot returns a copy of the current animation state.
func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play starts playback. The first tick after starting only records its
// timestamp, so time spent stopped never turns into a simulated-time jump.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Playing {
		return
	}
	c.state.Playing = true
	c.state.Version++
	c.lastTick = time.Time{}
	c.logger.Info("playback started", "time", c.state.CurrentTime, "speed", c.state.Speed)
	metrics.SetClockState(c.state.CurrentTime, true, c.state.Speed)
}

// Pause stops playback. Ticks arriving after Pause do not mutate state.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Playing {
		return
	}
	c.state.Playing = false
	c.state.Version++
	c.lastTick = time.Time{}
	c.logger.Info("playback paused", "time", c.state.CurrentTime)
	metrics.SetClockState(c.state.CurrentTime, false, c.state.Speed)
}

// TogglePlayback flips between playing and stopped and reports the new
// playing state.
func (c *Clock) TogglePlayback() bool {
	if c.Snapshot().Playing {
		c.Pause()
		return false
	}
	c.Play()
	return true
}

// Normalize maps any minutes-from-midnight value, including negatives and
// values past a day, into [0, 1440).
func Normalize(t float64) float64 {
	normalized := math.Mod(t, schedule.MinutesPerDay)
	if normalized < 0 {
		normalized += schedule.MinutesPerDay
	}
	return normalized
}

// Seek sets the current time to t mod 1440, normalizing values outside
// [0, 1440) including negatives. The play state is unchanged.
func (c *Clock) Seek(t float64) {
	normalized := Normalize(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CurrentTime = normalized
	c.state.Version++
	c.logger.Info("clock seek", "time", normalized)
	metrics.SetClockState(c.state.CurrentTime, c.state.Playing, c.state.Speed)
}

// Reset returns the clock to midnight without changing the play state.
func (c *Clock) Reset() {
	c.Seek(0)
}

// SetSpeed replaces the playback-speed multiplier; it takes effect on the
// next tick. Non-positive or non-finite speeds are rejected here, at the
// control boundary, so the tick math never sees them.
func (c *Clock) SetSpeed(s float64) error {
	if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		return fmt.Errorf("playback speed must be a positive finite number, got %v", s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Speed = s
	c.state.Version++
	c.logger.Info("playback speed set", "speed", s)
	metrics.SetClockState(c.state.CurrentTime, c.state.Playing, s)
	return nil
}

// SetLoop controls end-of-day behavior: wrap past midnight when true, clamp
// and stop when false. Takes effect the next time end-of-day is reached.
func (c *Clock) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Loop == loop {
		return
	}
	c.state.Loop = loop
	c.state.Version++
	c.logger.Info("loop mode set", "loop", loop)
}

// Tick advances the clock for one host frame occurring at now. While
// stopped it does nothing. Frames arriving faster than the frame interval
// are skipped without mutating state; because lastTick only moves on
// processed frames, skipping costs no simulated-time accuracy.
func (c *Clock) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Playing {
		return
	}

	if c.lastTick.IsZero() {
		c.lastTick = now
		return
	}

	elapsed := now.Sub(c.lastTick)
	if elapsed < c.frameInterval {
		return
	}
	c.lastTick = now

	deltaMinutes := elapsed.Seconds() * c.state.Speed / 60
	newTime := c.state.CurrentTime + deltaMinutes

	switch {
	case newTime < schedule.MinutesPerDay:
		c.state.CurrentTime = newTime
	case c.state.Loop:
		c.state.CurrentTime = math.Mod(newTime, schedule.MinutesPerDay)
	default:
		c.state.CurrentTime = schedule.MinutesPerDay - endOfDayEpsilon
		c.state.Playing = false
		c.lastTick = time.Time{}
		c.logger.Info("end of day reached, playback stopped")
	}
	c.state.Version++
	metrics.SetClockState(c.state.CurrentTime, c.state.Playing, c.state.Speed)
}

// Run drives ticks from a ticker at the frame interval until ctx is
// cancelled. This is the host frame source; cancelling ctx on teardown
// guarantees no stray tick mutates state afterwards.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("clock stopped")
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}
