package emvid

import (
	"errors"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoSourceOpen is returned by playback commands issued before a
// successful Open.
var ErrNoSourceOpen = errors.New("emvid: no source open")

// A Player is the engine facade. It owns the decode worker, the audio
// pipeline, the frame cache, the playback clock, and the state machine, and
// exposes the command surface the host application drives.
//
// Usage is similar to an audio player:
//   - Create one with [NewPlayer](), then [Player.Open]() a file.
//   - Poll [Player.CurrentFrame]() from the render tick; it never blocks.
//   - [Player.Play](), [Player.Pause](), [Player.Seek]() and the step
//     methods control playback; [Player.Events]() reports transitions
//     and errors.
//
// Methods are safe for use from a single host thread. The decode worker and
// the audio device run on their own threads and talk to the facade only
// through bounded channels and the clock.
type Player struct {
	cfg Config
	sm  *stateMachine

	mu       sync.Mutex
	src      *MediaSource
	worker   *decodeWorker
	audio    *audioPipeline
	device   *audioDevice
	feedDone chan struct{}
	clock    *playbackClock
	cache    *FrameCache
	syncer   *synchronizer

	pending  []*VideoFrame
	current  *VideoFrame
	epoch    uint64
	resumeTo PlaybackState

	// awaitAnchor re-seeds the clock from the next presented frame. Set
	// after a timed-out seek, when the decode position is wherever the
	// abandoned scan stopped rather than where the clock points.
	awaitAnchor bool

	wantPlay bool
	loop     bool
	muted    bool
	volume   float64
	speed    float64
}

// NewPlayer creates an engine with the given configuration.
func NewPlayer(cfg Config) *Player {
	cfg = cfg.withDefaults()
	return &Player{
		cfg:    cfg,
		sm:     newStateMachine(cfg.EventBufferDepth),
		loop:   cfg.Loop,
		volume: cfg.Volume,
		speed:  cfg.Speed,
	}
}

// Events exposes the engine's event stream: state transitions, errors with
// taxonomy codes, and skipped-file notices.
func (p *Player) Events() <-chan Event { return p.sm.events }

// State returns the current playback state.
func (p *Player) State() PlaybackState { return p.sm.state() }

// Status returns the state plus its payload (seek target, error).
func (p *Player) Status() Status { return p.sm.status() }

// Source returns the descriptor of the open source, or nil.
func (p *Player) Source() *MediaSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// Open replaces the current source with the given file. The previous decode
// worker is fully torn down before the new one starts, so frames from the
// old source can never reach the new one.
func (p *Player) Open(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()

	if !p.sm.to(Status{State: StateLoading}) {
		// terminal states pass through Idle first
		p.sm.to(Status{State: StateIdle})
		p.sm.to(Status{State: StateLoading})
	}

	src, dec, err := openSource(path, p.cfg)
	if err != nil {
		perr := asPlaybackError(err)
		p.sm.fail(perr)
		return perr
	}
	if perr := p.attachLocked(src, dec); perr != nil {
		p.sm.fail(perr)
		return perr
	}
	return nil
}

// OpenAny opens the first playable file of the list, emitting a skip notice
// for each unplayable one. The scan is bounded by MaxConsecutiveSkips.
// Returns the path that opened.
func (p *Player) OpenAny(paths ...string) (string, error) {
	var lastErr error
	for i, path := range paths {
		if i >= p.cfg.MaxConsecutiveSkips {
			break
		}
		if err := p.Open(path); err != nil {
			lastErr = err
			p.sm.emitSkip(filepath.Base(path))
			continue
		}
		return path, nil
	}
	if lastErr == nil {
		lastErr = ErrNoSourceOpen
	}
	return "", lastErr
}

func (p *Player) attachLocked(src *MediaSource, dec demuxer) *PlaybackError {
	p.src = src
	p.sm.setSourceID(src.ID)
	p.clock = newPlaybackClock(!src.HasAudio())
	p.clock.SetSpeed(p.speed)
	p.cache = NewFrameCache(p.cfg.CacheBudgetBytes)
	p.syncer = newSynchronizer(p.clock, p.cfg.SyncTolerance, src.FrameInterval())
	p.worker = newDecodeWorker(dec, src, p.cfg)
	p.pending = nil
	p.current = nil
	p.epoch = 0
	p.resumeTo = StatePaused
	p.wantPlay = p.cfg.Autoplay

	if src.HasAudio() {
		p.audio = newAudioPipeline(src.SampleRate, src.Channels, p.clock, p.speed)
		p.audio.setVolume(p.volume)
		p.audio.setMuted(p.muted)
		device, err := openAudioDevice(p.audio)
		if err != nil {
			p.audio.close()
			p.audio = nil
			if !src.HasVideo() {
				// audio-only with no output device: nothing to play
				if cerr := dec.close(); cerr != nil {
					pkgLogger.Warnf("emvid: closing decoder: %v", cerr)
				}
				p.worker = nil
				p.src = nil
				return playbackErr(ErrIoFailure, "audio device unavailable", err)
			}
			// no device: degrade to silent playback on the wall clock
			pkgLogger.Warnf("emvid: audio device unavailable, playing silent: %v", err)
			p.clock = newPlaybackClock(true)
			p.clock.SetSpeed(p.speed)
			p.syncer = newSynchronizer(p.clock, p.cfg.SyncTolerance, src.FrameInterval())
			go p.discardChunks(p.worker)
		} else {
			p.device = device
			p.feedDone = make(chan struct{})
			go p.feedAudio(p.worker, p.audio, p.feedDone)
		}
	}
	p.worker.start()
	return nil
}

// discardChunks drains decoded audio when no output device exists, so the
// worker never blocks on a full chunk channel.
func (p *Player) discardChunks(w *decodeWorker) {
	for {
		select {
		case <-w.chunks:
		case <-w.done:
			return
		}
	}
}

// feedAudio moves chunks from the worker to the audio pipeline; it is the
// blocking backpressure leg of the audio path. Chunks from superseded seek
// generations are dropped.
func (p *Player) feedAudio(w *decodeWorker, a *audioPipeline, done chan struct{}) {
	defer close(done)
	for {
		select {
		case chunk := <-w.chunks:
			if chunk.epoch < a.minEpoch.Load() {
				continue
			}
			a.pushChunk(chunk)
		case <-w.done:
			return
		}
	}
}

// Play starts or resumes playback. From EndOfStream it restarts from the
// beginning. Calling Play while already playing is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return ErrNoSourceOpen
	}
	p.wantPlay = true
	switch p.sm.state() {
	case StatePlaying, StateBuffering, StateLoading:
		return nil
	case StateSeeking:
		p.resumeTo = StatePlaying
		return nil
	case StatePaused:
		p.sm.to(Status{State: StatePlaying})
		p.resumeLocked()
		return nil
	case StateEndOfStream:
		p.startSeekLocked(0, StatePlaying)
		return nil
	default:
		return ErrNoSourceOpen
	}
}

// Pause freezes playback. Calling Pause while not playing is a no-op.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return ErrNoSourceOpen
	}
	p.wantPlay = false
	switch p.sm.state() {
	case StatePlaying, StateBuffering:
		p.sm.to(Status{State: StatePaused})
		p.holdLocked()
	case StateSeeking:
		p.resumeTo = StatePaused
	}
	return nil
}

// Stop cancels playback and releases the source. Idempotent; on return no
// further frames from the old source are observable.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
	p.sm.to(Status{State: StateIdle})
	return nil
}

// Close releases everything the player holds. The underlying decoders live
// in cgo, so this should be treated like a C free().
func (p *Player) Close() error {
	return p.Stop()
}

// Seek jumps to the given position. Negative positions clamp to the start;
// positions at or past the end resolve to EndOfStream. The call returns
// immediately; completion, or a recoverable SeekTimeout, is reported via
// Events.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return ErrNoSourceOpen
	}
	var resume PlaybackState
	switch p.sm.state() {
	case StatePlaying, StateBuffering:
		resume = StatePlaying
	case StatePaused, StateLoading:
		resume = StatePaused
	case StateSeeking:
		resume = p.resumeTo
	case StateEndOfStream:
		resume = StatePaused
		if p.wantPlay {
			resume = StatePlaying
		}
	default:
		return ErrNoSourceOpen
	}
	p.startSeekLocked(pos, resume)
	return nil
}

func (p *Player) startSeekLocked(pos time.Duration, resume PlaybackState) {
	p.resumeTo = resume
	p.sm.to(Status{State: StateSeeking, SeekTarget: pos})
	p.clock.Pause()
	if p.audio != nil {
		p.audio.setPlaying(false)
		p.audio.flush()
	}
	p.pending = nil
	p.cache.Clear()
	p.awaitAnchor = false
	go p.completeSeek(p.worker, pos)
}

func (p *Player) completeSeek(w *decodeWorker, pos time.Duration) {
	res := w.seek(pos)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker != w || res.superseded {
		// source replaced, or a newer seek owns the outcome
		return
	}
	if res.err != nil {
		if !res.err.Fatal() {
			// recoverable: report, adopt the position the scan reached,
			// and restore the previous state
			p.sm.emitError(res.err)
			p.epoch = res.epoch
			p.pending = filterEpoch(p.pending, res.epoch)
			if p.audio != nil {
				p.audio.minEpoch.Store(res.epoch)
				p.audio.flush()
			}
			p.awaitAnchor = true
			p.sm.to(Status{State: p.resumeTo})
			if p.resumeTo == StatePlaying {
				p.resumeLocked()
			}
			return
		}
		p.failLocked(res.err)
		return
	}

	p.epoch = res.epoch
	p.pending = filterEpoch(p.pending, res.epoch)
	p.awaitAnchor = false
	if p.audio != nil {
		p.audio.minEpoch.Store(res.epoch)
		p.audio.flush()
	}
	if res.eos {
		p.sm.to(Status{State: StateEndOfStream})
		if p.src.DurationKnown {
			p.clock.Reset(p.src.Duration)
		}
		return
	}

	// clock reference and decode position move together, so no stale
	// timestamp survives the boundary
	p.clock.Reset(res.pts)
	if p.resumeTo == StatePlaying {
		p.sm.to(Status{State: StatePlaying})
		p.resumeLocked()
	} else {
		p.sm.to(Status{State: StatePaused})
		// surface the target frame even while paused
		p.drainFramesLocked()
		p.presentNextLocked()
	}
}

// StepForward advances exactly one frame. Only valid while paused.
func (p *Player) StepForward() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return ErrNoSourceOpen
	}
	if p.sm.state() != StatePaused {
		return errors.New("emvid: frame stepping requires paused playback")
	}
	p.drainFramesLocked()
	if p.presentNextLocked() {
		return nil
	}

	// nothing buffered yet: wait briefly for the worker to decode one
	w := p.worker
	epoch := p.epoch
	p.mu.Unlock()
	var frame *VideoFrame
	select {
	case frame = <-w.frames:
	case <-w.done:
	case <-time.After(time.Second):
	}
	p.mu.Lock()
	if p.worker != w {
		return nil
	}
	if frame == nil || frame.epoch < epoch {
		if w.atEOF() {
			return nil // hold the last frame at end of stream
		}
		return errors.New("emvid: no frame available to step to")
	}
	p.showFrameLocked(frame)
	return nil
}

// StepBackward shows the previous frame. Only valid while paused. The
// decoder is forward-only, so the frame comes from the cache when resident
// and is otherwise re-derived by seeking to the prior position.
func (p *Player) StepBackward() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return ErrNoSourceOpen
	}
	if p.sm.state() != StatePaused {
		return errors.New("emvid: frame stepping requires paused playback")
	}
	if p.current == nil || p.current.PTS == 0 {
		return nil
	}
	if p.current.Seq > 0 {
		if frame, ok := p.cache.Get(p.current.Seq - 1); ok {
			p.showFrameLocked(frame)
			return nil
		}
	}

	// cache miss: recompute from the nearest prior keyframe
	target := p.current.PTS - p.src.FrameInterval()
	if target < 0 {
		target = 0
	}
	w := p.worker
	p.mu.Unlock()
	res := w.seek(target)
	var frame *VideoFrame
	if res.err == nil && !res.eos && !res.superseded {
		select {
		case frame = <-w.frames:
		case <-w.done:
		case <-time.After(time.Second):
		}
	}
	p.mu.Lock()
	if p.worker != w || res.superseded {
		return nil
	}
	if res.err != nil {
		if !res.err.Fatal() {
			p.sm.emitError(res.err)
			return res.err
		}
		p.failLocked(res.err)
		return res.err
	}
	if frame == nil {
		return errors.New("emvid: no frame available to step to")
	}
	p.epoch = res.epoch
	p.pending = nil
	p.cache.Clear()
	p.showFrameLocked(frame)
	return nil
}

// SetSpeed changes the playback speed factor, clamped to [MinSpeed] and
// [MaxSpeed]. The clock re-anchors so the position stays continuous, and
// audio pitch follows the rate.
func (p *Player) SetSpeed(speed float64) {
	speed = clampSpeed(speed)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
	if p.clock != nil {
		p.clock.SetSpeed(speed)
	}
	if p.audio != nil {
		p.audio.setSpeed(speed)
	}
}

// Speed returns the current playback speed factor.
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// SetVolume sets the volume, from 0 to 1.5 (150%), perceptually scaled.
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1.5 {
		v = 1.5
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if p.audio != nil {
		p.audio.setVolume(v)
	}
}

// Volume returns the current volume setting.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetMuted mutes or unmutes audio output. The setting survives source
// changes.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	if p.audio != nil {
		p.audio.setMuted(muted)
	}
}

// Muted reports the mute state.
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// SetLoop makes end of stream seek back to the start and keep playing.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	p.loop = loop
	p.mu.Unlock()
}

// Loop reports the loop setting.
func (p *Player) Loop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// HasAudio reports whether the open source plays audio.
func (p *Player) HasAudio() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clock == nil {
		return 0
	}
	pos := p.clock.Now()
	if pos < 0 {
		pos = 0
	}
	if p.src != nil && p.src.DurationKnown && pos > p.src.Duration {
		pos = p.src.Duration
	}
	return pos
}

// Duration returns the source duration, or zero when unknown.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return 0
	}
	return p.src.Duration
}

// Resolution returns the width and height of the video, or zeros for
// audio-only sources.
func (p *Player) Resolution() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return 0, 0
	}
	return p.src.Width, p.src.Height
}

// CurrentFrame returns the frame to present right now, advancing the
// engine: it drains the worker's output, applies the present/wait/drop
// policy against the clock, feeds the frame cache, and runs the watchdog,
// rebuffering and end-of-stream checks. It never blocks; call it from the
// render tick.
//
// The returned frame stays valid until the source is replaced; unlike the
// data behind it, the pointer must not be retained across an Open.
func (p *Player) CurrentFrame() *VideoFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker == nil {
		return p.current
	}
	p.pumpLocked()
	return p.current
}

// --- internal orchestration, p.mu held throughout ---

func (p *Player) pumpLocked() {
	if p.checkWorkerHealthLocked() {
		return
	}
	p.drainFramesLocked()

	switch p.sm.state() {
	case StateLoading:
		p.pumpLoadingLocked()
	case StatePlaying:
		p.pumpPlayingLocked()
	case StateBuffering:
		refilled := p.audio != nil && p.audio.buffered() >= p.cfg.RebufferThreshold
		// when decode cannot outpace playback the buffers top out below
		// the threshold; resume once the pipeline is as full as it gets
		if !refilled && len(p.pending) >= pendingFrameLimit &&
			len(p.worker.frames) == cap(p.worker.frames) {
			refilled = true
		}
		if refilled {
			p.sm.to(Status{State: StatePlaying})
			p.resumeLocked()
		}
	}
}

// checkWorkerHealthLocked runs the decoder watchdog. It covers every state
// that expects decode progress: Playing, and also Loading and Buffering,
// where a stalled decoder would otherwise hang the player with no frame to
// show. Seeking has its own timeout inside the worker. Returns true when the
// worker was declared dead.
func (p *Player) checkWorkerHealthLocked() bool {
	select {
	case <-p.worker.done:
		if err := p.worker.fatal.Load(); err != nil {
			p.failLocked(err)
			return true
		}
	default:
	}
	switch p.sm.state() {
	case StatePlaying, StateLoading, StateBuffering:
		if !p.worker.atEOF() && p.worker.progressAge() > p.cfg.WatchdogTimeout {
			p.failLocked(playbackErr(ErrDecoderDied,
				"decoder stopped producing output", nil))
			return true
		}
	}
	return false
}

func (p *Player) pumpLoadingLocked() {
	if p.src.HasVideo() {
		if len(p.pending) == 0 {
			return
		}
		p.showFrameLocked(p.pending[0])
		p.pending = p.pending[1:]
	} else if p.audio == nil || p.audio.buffered() == 0 {
		// audio-only source is ready once the pipeline holds data
		return
	}
	if p.wantPlay {
		p.sm.to(Status{State: StatePlaying})
		p.clock.Start(p.currentPTSLocked())
		if p.audio != nil {
			p.audio.setPlaying(true)
		}
	} else {
		p.sm.to(Status{State: StatePaused})
		p.clock.Reset(p.currentPTSLocked())
	}
}

func (p *Player) pumpPlayingLocked() {
	if p.audio != nil && p.audio.takeUnderrun() && !p.worker.atEOF() {
		// the ring refills only while the pull is stopped
		p.sm.to(Status{State: StateBuffering})
		p.holdLocked()
		return
	}

	if p.awaitAnchor && len(p.pending) > 0 {
		p.clock.Reset(p.pending[0].PTS)
		p.awaitAnchor = false
	}

	if idx, ok := p.syncer.selectFrame(p.pending); ok {
		if idx > 0 {
			pkgLogger.Debugf("emvid: dropped %d late frame(s)", idx)
		}
		p.showFrameLocked(p.pending[idx])
		p.pending = p.pending[idx+1:]
	}

	p.checkEndOfStreamLocked()
}

func (p *Player) checkEndOfStreamLocked() {
	if !p.worker.atEOF() || len(p.pending) > 0 || len(p.worker.frames) > 0 {
		return
	}
	if p.audio != nil && p.audio.buffered() > 0 {
		return
	}
	if p.current != nil && p.clock.Now() < p.current.PTS {
		return
	}
	if p.loop {
		// restart: clock reference and decode position reset together
		p.startSeekLocked(0, StatePlaying)
		return
	}
	// hold the last frame until an explicit command
	p.sm.to(Status{State: StateEndOfStream})
	p.clock.Pause()
	if p.audio != nil {
		p.audio.setPlaying(false)
	}
}

// pendingFrameLimit bounds the player-side look-ahead. Frames beyond it stay
// in the worker's bounded channel, so a full channel still blocks the worker
// instead of the whole file accumulating in memory.
const pendingFrameLimit = 4

// drainFramesLocked moves decoded frames from the worker channel into the
// pending list, discarding superseded generations. Non-blocking, and stops
// at pendingFrameLimit undisplayed frames.
func (p *Player) drainFramesLocked() {
	for len(p.pending) < pendingFrameLimit {
		select {
		case f := <-p.worker.frames:
			if f.epoch >= p.epoch {
				p.pending = append(p.pending, f)
			}
		default:
			return
		}
	}
}

// presentNextLocked shows the first pending frame, if any.
func (p *Player) presentNextLocked() bool {
	p.pending = filterEpoch(p.pending, p.epoch)
	if len(p.pending) == 0 {
		return false
	}
	p.showFrameLocked(p.pending[0])
	p.pending = p.pending[1:]
	return true
}

// showFrameLocked makes a frame current, caches it, and pins it so the
// cache can never evict what is on screen.
func (p *Player) showFrameLocked(f *VideoFrame) {
	p.current = f
	p.cache.Insert(f.Seq, f)
	p.cache.Pin(f.Seq)
	if p.sm.state() == StatePaused {
		p.clock.Reset(f.PTS)
		p.awaitAnchor = false
	}
}

func (p *Player) currentPTSLocked() time.Duration {
	if p.current != nil {
		return p.current.PTS
	}
	return 0
}

func (p *Player) resumeLocked() {
	p.clock.Resume()
	if p.audio != nil {
		p.audio.setPlaying(true)
	}
}

func (p *Player) holdLocked() {
	p.clock.Pause()
	if p.audio != nil {
		p.audio.setPlaying(false)
	}
}

// failLocked abandons the source and enters the terminal Error state. Unlike
// teardownLocked it does not join the worker: a worker declared dead may be
// stuck inside the decoding backend, and joining it could hang the caller.
func (p *Player) failLocked(err *PlaybackError) {
	pkgLogger.Errorf("emvid: playback failed: %v", err)
	if p.worker != nil {
		if p.audio != nil {
			p.audio.close()
		}
		p.worker.signalStop()
		p.worker = nil
		if p.device != nil {
			if derr := p.device.Close(); derr != nil {
				pkgLogger.Warnf("emvid: closing audio device: %v", derr)
			}
			p.device = nil
		}
		p.audio = nil
		p.feedDone = nil
		p.src = nil
		p.pending = nil
		p.current = nil
		if p.cache != nil {
			p.cache.Clear()
		}
		if p.clock != nil {
			p.clock.Pause()
		}
	}
	p.sm.fail(err)
}

// newPlayerWithDemuxer wires a player to an already-open demuxer, bypassing
// the container probe. Shared with the tests, which script their own
// demuxers instead of opening real media.
func newPlayerWithDemuxer(src *MediaSource, dec demuxer, cfg Config) *Player {
	p := NewPlayer(cfg)
	p.mu.Lock()
	p.sm.to(Status{State: StateLoading})
	if err := p.attachLocked(src, dec); err != nil {
		p.sm.fail(err)
	}
	p.mu.Unlock()
	return p
}

// teardownLocked stops everything belonging to the current source: the
// pipeline first so the feeder cannot block on a full ring, then the worker
// (close-then-join), then the feeder and the device.
func (p *Player) teardownLocked() {
	if p.worker == nil {
		return
	}
	if p.audio != nil {
		p.audio.close()
	}
	w := p.worker
	feedDone := p.feedDone
	p.worker = nil

	p.mu.Unlock()
	w.stop()
	if feedDone != nil {
		<-feedDone
	}
	p.mu.Lock()

	if p.device != nil {
		if err := p.device.Close(); err != nil {
			pkgLogger.Warnf("emvid: closing audio device: %v", err)
		}
		p.device = nil
	}
	p.audio = nil
	p.feedDone = nil
	p.src = nil
	p.pending = nil
	p.current = nil
	if p.cache != nil {
		p.cache.Clear()
	}
	if p.clock != nil {
		p.clock.Pause()
	}
}

func filterEpoch(frames []*VideoFrame, epoch uint64) []*VideoFrame {
	kept := frames[:0]
	for _, f := range frames {
		if f.epoch >= epoch {
			kept = append(kept, f)
		}
	}
	return kept
}
