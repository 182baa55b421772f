// Package config manages application settings, defaults, and the
// Viper-based configuration engine.
package config

import (
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	return EnvPrefix + "_" + strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
}

// Pretty returns a printable description of the field and its current value.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

func register(k string, v any, desc string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}
	Default[k] = Field{Key: k, Value: v, Description: desc}
}

func init() {
	register(PlaybackAutoplay, true, "Start playing as soon as a file is loaded")
	register(PlaybackLoop, false, "Seek back to the start when playback reaches the end")
	register(PlaybackVolume, 1.0, "Initial volume, from 0.0 to 1.5 (150%)")
	register(PlaybackSpeed, 1.0, "Initial playback speed factor, from 0.1 to 8.0")
	register(PlaybackIgnoreAudio, false, "Discard audio streams and pace playback by wall time")
	register(CacheFrameBudgetMB, 256, "Memory budget of the decoded frame cache, in MiB")
	register(SeekTimeoutSeconds, 5, "Abandon a seek that cannot reach its target frame within this many seconds")
	register(SeekStepSeconds, 5, "Seconds moved per arrow-key seek in the player UI")
	register(WatchdogTimeoutSeconds, 10, "Declare the decoder dead after this many seconds without output")
	register(AudioRebufferMillis, 200, "Audio level, in milliseconds, at which rebuffering resumes playback")
	register(NavigationMaxConsecutiveSkips, 10, "Stop skipping ahead after this many unplayable files in a row")
	register(LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"value": func(k string) any { return viper.Get(k) },
}).Parse(`{{ .Description }}
Key:     {{ .Key }}
Env:     {{ .Env }}
Value:   {{ value .Key }}
Default: {{ .Value }}`))
