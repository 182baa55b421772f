package emvid

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// decodeWorker is the exclusive owner of the demux/decode context. It runs
// on its own goroutine, pulls frames and chunks from the demuxer, and pushes
// them through bounded channels. A full channel blocks the worker
// (backpressure) instead of dropping data; only an arriving command may
// preempt a blocked delivery, in which case the in-flight item belongs to a
// superseded generation and is discarded.
type decodeWorker struct {
	dec demuxer
	src *MediaSource

	frames chan *VideoFrame
	chunks chan *AudioChunk
	cmds   chan workerCmd

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	seekTimeout  time.Duration
	lastProgress atomic.Int64 // unix nanos of the last decoded item
	eofFlag      atomic.Bool
	epoch        atomic.Uint64
	fatal        atomic.Pointer[PlaybackError]

	seq int64 // next display-order index, worker goroutine only
}

type workerCmd struct {
	target time.Duration
	reply  chan seekResult
}

// seekResult is the worker's answer to one seek command. Exactly one result
// is sent per command.
type seekResult struct {
	epoch      uint64
	pts        time.Duration
	eos        bool
	superseded bool
	err        *PlaybackError
}

func newDecodeWorker(dec demuxer, src *MediaSource, cfg Config) *decodeWorker {
	w := &decodeWorker{
		dec:         dec,
		src:         src,
		frames:      make(chan *VideoFrame, cfg.FrameQueueDepth),
		chunks:      make(chan *AudioChunk, cfg.ChunkQueueDepth),
		cmds:        make(chan workerCmd, 4),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		seekTimeout: cfg.SeekTimeout,
	}
	w.lastProgress.Store(time.Now().UnixNano())
	return w
}

func (w *decodeWorker) start() {
	go w.run()
}

// stop tears the worker down deterministically: close-then-join. On return
// no further frames or chunks will be pushed, so a newly opened source can
// never receive items from this one. Idempotent.
func (w *decodeWorker) stop() {
	w.signalStop()
	<-w.done
}

// signalStop requests shutdown without joining. Used when the worker is
// suspected stuck inside the decoding backend and joining could hang.
func (w *decodeWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// seek asks the worker to jump to target and blocks until the worker
// reports back. The worker itself bounds the decode-forward scan with the
// configured timeout, so this cannot hang.
func (w *decodeWorker) seek(target time.Duration) seekResult {
	reply := make(chan seekResult, 1)
	select {
	case w.cmds <- workerCmd{target: target, reply: reply}:
	case <-w.done:
		return seekResult{err: w.fatalError()}
	}
	select {
	case res := <-reply:
		return res
	case <-w.done:
		return seekResult{err: w.fatalError()}
	}
}

func (w *decodeWorker) atEOF() bool { return w.eofFlag.Load() }

// progressAge reports how long ago the worker last decoded something.
func (w *decodeWorker) progressAge() time.Duration {
	return time.Duration(time.Now().UnixNano() - w.lastProgress.Load())
}

func (w *decodeWorker) fatalError() *PlaybackError {
	if err := w.fatal.Load(); err != nil {
		return err
	}
	return playbackErr(ErrDecoderDied, "decode worker is gone", nil)
}

func (w *decodeWorker) run() {
	defer close(w.done)
	defer func() {
		if err := w.dec.close(); err != nil {
			pkgLogger.Warnf("emvid: closing decoder: %v", err)
		}
	}()

	for {
		select {
		case <-w.quit:
			return
		case cmd := <-w.cmds:
			if !w.execSeek(cmd) {
				return
			}
			continue
		default:
		}

		if w.eofFlag.Load() {
			// nothing left to decode until a seek revives the stream
			select {
			case <-w.quit:
				return
			case cmd := <-w.cmds:
				if !w.execSeek(cmd) {
					return
				}
			}
			continue
		}

		frame, chunk, err := w.dec.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.eofFlag.Store(true)
				continue
			}
			w.fatal.Store(asPlaybackError(err))
			return
		}
		w.lastProgress.Store(time.Now().UnixNano())

		switch {
		case frame != nil:
			frame.Seq = w.seq
			frame.epoch = w.epoch.Load()
			w.seq++
			if !w.deliverFrame(frame) {
				return
			}
		case chunk != nil:
			chunk.epoch = w.epoch.Load()
			if !w.deliverChunk(chunk) {
				return
			}
		}
	}
}

// deliverFrame blocks until the frame is accepted, the worker is stopped,
// or a command preempts the delivery (the frame then belongs to a stale
// generation and is dropped). Returns false when the worker must exit.
func (w *decodeWorker) deliverFrame(f *VideoFrame) bool {
	select {
	case w.frames <- f:
		return true
	case <-w.quit:
		return false
	case cmd := <-w.cmds:
		return w.execSeek(cmd)
	}
}

func (w *decodeWorker) deliverChunk(c *AudioChunk) bool {
	select {
	case w.chunks <- c:
		return true
	case <-w.quit:
		return false
	case cmd := <-w.cmds:
		return w.execSeek(cmd)
	}
}

// execSeek flushes decoder state, jumps the container to the nearest prior
// keyframe, and decodes forward discarding frames until the target is
// reached (PTS comparison happens in display order, so B-frame reordering
// cannot fool the scan). The scan is bounded by the seek timeout. Audio
// chunks encountered during the scan are discarded; audio resumes from the
// regular loop after the first on-target frame.
//
// Returns false when the worker hit a fatal error and must exit.
func (w *decodeWorker) execSeek(cmd workerCmd) bool {
	target := cmd.target
	if target < 0 {
		target = 0
	}
	epoch := w.epoch.Add(1)

	// seeking past the end is end-of-stream, not an error
	if w.src.DurationKnown && target >= w.src.Duration {
		w.eofFlag.Store(true)
		cmd.reply <- seekResult{epoch: epoch, eos: true}
		return true
	}

	deadline := time.Now().Add(w.seekTimeout)
	if err := w.dec.rewind(target); err != nil {
		perr := asPlaybackError(err)
		w.fatal.Store(perr)
		cmd.reply <- seekResult{epoch: epoch, err: perr}
		return false
	}
	w.eofFlag.Store(false)
	w.seq = 0
	interval := w.src.FrameInterval()

	for {
		// a newer command supersedes this seek and discards its progress
		select {
		case <-w.quit:
			cmd.reply <- seekResult{epoch: epoch, superseded: true}
			return false
		case next := <-w.cmds:
			cmd.reply <- seekResult{epoch: epoch, superseded: true}
			return w.execSeek(next)
		default:
		}

		if time.Now().After(deadline) {
			cmd.reply <- seekResult{epoch: epoch, err: playbackErr(ErrSeekTimeout,
				"seek did not reach its target frame in time", nil)}
			return true
		}

		frame, chunk, err := w.dec.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.eofFlag.Store(true)
				cmd.reply <- seekResult{epoch: epoch, eos: true}
				return true
			}
			perr := asPlaybackError(err)
			w.fatal.Store(perr)
			cmd.reply <- seekResult{epoch: epoch, err: perr}
			return false
		}
		w.lastProgress.Store(time.Now().UnixNano())

		if chunk != nil {
			if !w.src.HasVideo() && chunk.PTS+chunk.Duration() > target {
				// audio-only source: the chunk covering the target
				// completes the seek
				chunk.epoch = epoch
				if ok, preempted := w.deliverChunkDuringSeek(chunk, cmd, epoch); !ok {
					return false
				} else if preempted {
					return true
				}
				cmd.reply <- seekResult{epoch: epoch, pts: chunk.PTS}
				return true
			}
			continue
		}
		if frame == nil {
			continue
		}
		if frame.PTS+interval <= target {
			continue // still before the target, keep discarding
		}

		frame.Seq = w.seq
		frame.epoch = epoch
		w.seq++
		select {
		case w.frames <- frame:
		case <-w.quit:
			cmd.reply <- seekResult{epoch: epoch, superseded: true}
			return false
		case next := <-w.cmds:
			cmd.reply <- seekResult{epoch: epoch, superseded: true}
			return w.execSeek(next)
		}
		cmd.reply <- seekResult{epoch: epoch, pts: frame.PTS}
		return true
	}
}

func (w *decodeWorker) deliverChunkDuringSeek(c *AudioChunk, cmd workerCmd, epoch uint64) (ok, preempted bool) {
	select {
	case w.chunks <- c:
		return true, false
	case <-w.quit:
		cmd.reply <- seekResult{epoch: epoch, superseded: true}
		return false, false
	case next := <-w.cmds:
		cmd.reply <- seekResult{epoch: epoch, superseded: true}
		return w.execSeek(next), true
	}
}

// asPlaybackError coerces any error into the engine taxonomy.
func asPlaybackError(err error) *PlaybackError {
	var perr *PlaybackError
	if errors.As(err, &perr) {
		return perr
	}
	return playbackErr(ErrIoFailure, "decoding backend failure", err)
}
