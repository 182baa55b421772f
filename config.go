package emvid

import "time"

// Config carries the engine's tunables. Values arrive pre-validated from the
// owning configuration layer (see the config package); withDefaults clamps
// them once more so a zero Config is always safe to use.
type Config struct {
	// CacheBudgetBytes bounds the frame cache used for backward stepping
	// and re-display. Default 256 MiB.
	CacheBudgetBytes int

	// SeekTimeout bounds how long a seek may decode forward before it is
	// abandoned with ErrSeekTimeout. Default 5s.
	SeekTimeout time.Duration

	// WatchdogTimeout is how long the worker may go without producing a
	// frame or chunk while Playing before it is declared dead. Default 10s.
	WatchdogTimeout time.Duration

	// SyncTolerance is the on-time window for frame presentation. Zero
	// selects half the source's frame interval (floor 5ms).
	SyncTolerance time.Duration

	// FrameQueueDepth / ChunkQueueDepth size the bounded worker channels.
	FrameQueueDepth int
	ChunkQueueDepth int

	// EventBufferDepth sizes the host-facing event channel.
	EventBufferDepth int

	// RebufferThreshold is the audio level at which Buffering resolves
	// back to Playing. Default 200ms.
	RebufferThreshold time.Duration

	// Autoplay starts playback as soon as the first frame is ready;
	// otherwise the engine loads into Paused.
	Autoplay bool

	// Loop seeks back to the start on end of stream.
	Loop bool

	// Volume is the initial volume, 0..1.5 (150%).
	Volume float64

	// Speed is the initial playback speed factor, 0.1..8.0.
	Speed float64

	// IgnoreAudio discards audio streams entirely, as if the source were
	// silent. The clock then paces by wall time.
	IgnoreAudio bool

	// MaxConsecutiveSkips bounds OpenAny's skip-ahead over unplayable
	// files. Default 10.
	MaxConsecutiveSkips int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.CacheBudgetBytes <= 0 {
		c.CacheBudgetBytes = 256 << 20
	}
	if c.SeekTimeout <= 0 {
		c.SeekTimeout = 5 * time.Second
	}
	if c.WatchdogTimeout <= 0 {
		c.WatchdogTimeout = 10 * time.Second
	}
	if c.FrameQueueDepth <= 0 {
		c.FrameQueueDepth = 8
	}
	if c.ChunkQueueDepth <= 0 {
		c.ChunkQueueDepth = 16
	}
	if c.EventBufferDepth <= 0 {
		c.EventBufferDepth = 32
	}
	if c.RebufferThreshold <= 0 {
		c.RebufferThreshold = 200 * time.Millisecond
	}
	if c.Volume <= 0 {
		c.Volume = 1.0
	}
	if c.Volume > 1.5 {
		c.Volume = 1.5
	}
	if c.Speed == 0 {
		c.Speed = 1.0
	}
	c.Speed = clampSpeed(c.Speed)
	if c.MaxConsecutiveSkips <= 0 {
		c.MaxConsecutiveSkips = 10
	}
	return c
}
