package emvid

import "time"

// syncVerdict is the synchronizer's decision for one candidate frame.
type syncVerdict uint8

const (
	// syncPresent: the frame is due within tolerance, show it now.
	syncPresent syncVerdict = iota
	// syncWait: the frame is early, hold it and re-check next tick.
	syncWait
	// syncDrop: the frame is late beyond tolerance, discard and advance.
	syncDrop
)

// synchronizer implements audio-master sync: each candidate video frame's
// PTS is compared against the clock estimate and either presented, held, or
// dropped. Dropping late frames instead of presenting them keeps temporary
// stalls from turning into cumulative lag. For silent media the clock it
// reads is wall-clock paced, so the same decision kernel yields nominal
// frame-rate pacing scaled by the speed factor.
type synchronizer struct {
	clock     *playbackClock
	tolerance time.Duration
}

func newSynchronizer(clock *playbackClock, tolerance, frameInterval time.Duration) *synchronizer {
	if tolerance <= 0 {
		// default: half a frame interval, floored so jittery display
		// timers on high-refresh setups don't flap between verdicts
		tolerance = frameInterval / 2
		if tolerance < 5*time.Millisecond {
			tolerance = 5 * time.Millisecond
		}
	}
	return &synchronizer{clock: clock, tolerance: tolerance}
}

// decide classifies a frame PTS against the current clock estimate.
func (s *synchronizer) decide(pts time.Duration) syncVerdict {
	return s.decideAt(pts, s.clock.Now())
}

// decideAt is the pure kernel, split out for tests.
func (s *synchronizer) decideAt(pts, now time.Duration) syncVerdict {
	delta := pts - now
	switch {
	case delta > s.tolerance:
		return syncWait
	case delta < -s.tolerance:
		return syncDrop
	default:
		return syncPresent
	}
}

// selectFrame walks pending frames in display order and returns the index of
// the frame to present now, applying the drop policy: every frame late
// beyond tolerance is skipped except the newest, which is presented so the
// picture advances to the freshest content after a stall.
//
// Returns (-1, false) when the head frame is still early.
func (s *synchronizer) selectFrame(pending []*VideoFrame) (int, bool) {
	if len(pending) == 0 {
		return -1, false
	}
	now := s.clock.Now()
	chosen := -1
	for i, f := range pending {
		switch s.decideAt(f.PTS, now) {
		case syncWait:
			return chosen, chosen >= 0
		case syncPresent:
			return i, true
		case syncDrop:
			chosen = i // keep advancing; newest late frame wins
		}
	}
	return chosen, chosen >= 0
}
