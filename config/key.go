package config

// Configuration keys. Dots separate sections; the environment variable form
// replaces them with underscores under the EMVID prefix.
const (
	PlaybackAutoplay    = "playback.autoplay"
	PlaybackLoop        = "playback.loop"
	PlaybackVolume      = "playback.volume"
	PlaybackSpeed       = "playback.speed"
	PlaybackIgnoreAudio = "playback.ignore_audio"

	CacheFrameBudgetMB = "cache.frame_budget_mb"

	SeekTimeoutSeconds = "seek.timeout_seconds"
	SeekStepSeconds    = "seek.step_seconds"

	WatchdogTimeoutSeconds = "watchdog.timeout_seconds"

	AudioRebufferMillis = "audio.rebuffer_ms"

	NavigationMaxConsecutiveSkips = "navigation.max_consecutive_skips"

	LogsLevel = "logs.level"
)
