package emvid

import "time"

// Playback speed limits shared by the clock and the public API.
const (
	MinSpeed = 0.1
	MaxSpeed = 8.0
)

// TimeBase is the rational unit in which a stream expresses timestamps:
// a PTS of n corresponds to n * Num / Den seconds.
type TimeBase struct {
	Num int
	Den int
}

// Valid reports whether the time base can be used for conversions.
func (tb TimeBase) Valid() bool { return tb.Num > 0 && tb.Den > 0 }

// Duration converts a stream-native PTS value to a wall-clock duration.
func (tb TimeBase) Duration(pts int64) time.Duration {
	if !tb.Valid() {
		return 0
	}
	return time.Duration(pts) * time.Second * time.Duration(tb.Num) / time.Duration(tb.Den)
}

// PTS converts a duration back to stream-native units, rounding to the
// nearest unit so Duration and PTS round-trip despite the nanosecond
// truncation in Duration.
func (tb TimeBase) PTS(d time.Duration) int64 {
	if !tb.Valid() {
		return 0
	}
	unit := int64(time.Second) * int64(tb.Num)
	return (int64(d)*int64(tb.Den) + unit/2) / unit
}

// FrameInterval returns the nominal duration of one frame for a rational
// frame rate of num/den frames per second. Returns 0 for degenerate rates.
func FrameInterval(num, den int) time.Duration {
	if num <= 0 || den <= 0 {
		return 0
	}
	return time.Second * time.Duration(den) / time.Duration(num)
}

// ScaleBySpeed converts a media duration to the wall-clock time it occupies
// at the given playback speed. A 2s stretch of media at speed 2.0 takes 1s.
func ScaleBySpeed(d time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		return d
	}
	return time.Duration(float64(d) / speed)
}

// UnscaleBySpeed is the inverse of ScaleBySpeed: wall-clock time elapsed at
// the given speed corresponds to this much media time.
func UnscaleBySpeed(d time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		return d
	}
	return time.Duration(float64(d) * speed)
}

func clampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
