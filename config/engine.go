package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	emvid "github.com/emvid/go-emvid"
)

// Engine materializes the engine configuration from the current settings.
// Call Setup first; the engine clamps out-of-range values itself.
func Engine() emvid.Config {
	cfg := emvid.DefaultConfig()
	cfg.Autoplay = viper.GetBool(PlaybackAutoplay)
	cfg.Loop = viper.GetBool(PlaybackLoop)
	cfg.Volume = viper.GetFloat64(PlaybackVolume)
	cfg.Speed = viper.GetFloat64(PlaybackSpeed)
	cfg.IgnoreAudio = viper.GetBool(PlaybackIgnoreAudio)
	cfg.CacheBudgetBytes = viper.GetInt(CacheFrameBudgetMB) << 20
	cfg.SeekTimeout = time.Duration(viper.GetInt(SeekTimeoutSeconds)) * time.Second
	cfg.WatchdogTimeout = time.Duration(viper.GetInt(WatchdogTimeoutSeconds)) * time.Second
	cfg.RebufferThreshold = time.Duration(viper.GetInt(AudioRebufferMillis)) * time.Millisecond
	cfg.MaxConsecutiveSkips = viper.GetInt(NavigationMaxConsecutiveSkips)
	return cfg
}

// SeekStep returns the configured arrow-key seek increment.
func SeekStep() time.Duration {
	return time.Duration(viper.GetInt(SeekStepSeconds)) * time.Second
}

// ApplyLogLevel pushes the configured verbosity onto the process logger.
func ApplyLogLevel() {
	level, err := logrus.ParseLevel(viper.GetString(LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
