package emvid

import (
	"sync"
	"time"
)

// playbackClock estimates the current media time. With an audio track, the
// audio pipeline re-anchors the clock on every device pull and the estimate
// between pulls is reference PTS plus scaled wall time. For silent media the
// clock is wall-clock-only, seeded at play start.
//
// The clock is the one structure shared between the audio pull path and the
// UI tick, so the critical sections stay tiny: no allocation, no calls out.
type playbackClock struct {
	mu       sync.RWMutex
	refWall  time.Time
	refPTS   time.Duration
	speed    float64
	running  bool
	wallOnly bool
}

func newPlaybackClock(wallOnly bool) *playbackClock {
	return &playbackClock{speed: 1.0, wallOnly: wallOnly}
}

// Now returns the estimated current media time.
func (c *playbackClock) Now() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowLocked(time.Now())
}

func (c *playbackClock) nowLocked(now time.Time) time.Duration {
	if !c.running {
		return c.refPTS
	}
	if now.Before(c.refWall) {
		// monotonic clock inconsistency, don't go backwards
		return c.refPTS
	}
	return c.refPTS + UnscaleBySpeed(now.Sub(c.refWall), c.speed)
}

// Start seeds the clock at the given media position and begins advancing.
func (c *playbackClock) Start(at time.Duration) {
	c.mu.Lock()
	c.refPTS = at
	c.refWall = time.Now()
	c.running = true
	c.mu.Unlock()
}

// Update re-anchors the clock at a freshly consumed audio PTS. Called from
// the device pull path on every successful read.
func (c *playbackClock) Update(pts time.Duration) {
	c.mu.Lock()
	c.refPTS = pts
	c.refWall = time.Now()
	c.mu.Unlock()
}

// Pause freezes the estimate at the current position.
func (c *playbackClock) Pause() {
	c.mu.Lock()
	now := time.Now()
	c.refPTS = c.nowLocked(now)
	c.refWall = now
	c.running = false
	c.mu.Unlock()
}

// Resume continues advancing from the frozen position.
func (c *playbackClock) Resume() {
	c.mu.Lock()
	if !c.running {
		c.refWall = time.Now()
		c.running = true
	}
	c.mu.Unlock()
}

// Reset moves the reference to a new position atomically, preserving the
// running state. Used on seek and loop restarts so no stale reference leaks
// across the boundary.
func (c *playbackClock) Reset(at time.Duration) {
	c.mu.Lock()
	c.refPTS = at
	c.refWall = time.Now()
	c.mu.Unlock()
}

// SetSpeed re-anchors at the current estimate before changing the factor so
// the position stays continuous across speed changes.
func (c *playbackClock) SetSpeed(speed float64) {
	speed = clampSpeed(speed)
	c.mu.Lock()
	now := time.Now()
	c.refPTS = c.nowLocked(now)
	c.refWall = now
	c.speed = speed
	c.mu.Unlock()
}

func (c *playbackClock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

func (c *playbackClock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// WallOnly reports whether the clock paces by wall time alone (silent media).
func (c *playbackClock) WallOnly() bool { return c.wallOnly }
