package emvid

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeDemuxer scripts decoder behavior so worker and player tests run
// without media files or the FFmpeg backend. It emits one frame (or chunk)
// per readFrame at a fixed interval, like a constant-rate stream.
type fakeDemuxer struct {
	interval time.Duration
	total    int
	pos      int

	// keyframe is the rewind granularity in frames; rewind lands on the
	// nearest prior multiple, like a real container's keyframes.
	keyframe int

	readDelay time.Duration
	failAt    int           // readFrame index returning a fatal error, -1 disables
	stallAt   int           // readFrame index that blocks, -1 disables
	stallCh   chan struct{} // closed to release a stalled readFrame

	audioRate  int  // emit audio chunks instead of frames when > 0
	withAudio  bool // interleave an audio chunk after every frame
	frameWidth int

	audioPending bool
	audioPTS     time.Duration

	mu      sync.Mutex
	rewinds int
	closed  bool
}

func newFakeDemuxer(total int, interval time.Duration) *fakeDemuxer {
	return &fakeDemuxer{
		interval:   interval,
		total:      total,
		keyframe:   5,
		failAt:     -1,
		stallAt:    -1,
		stallCh:    make(chan struct{}),
		frameWidth: 4,
	}
}

func (d *fakeDemuxer) readFrame() (*VideoFrame, *AudioChunk, error) {
	if d.readDelay > 0 {
		time.Sleep(d.readDelay)
	}
	if d.withAudio && d.audioPending {
		d.audioPending = false
		frames := int(time.Duration(48000) * d.interval / time.Second)
		return nil, &AudioChunk{
			Data:       make([]byte, frames*2*2),
			Channels:   2,
			SampleRate: 48000,
			PTS:        d.audioPTS,
		}, nil
	}
	pos := d.position()
	if d.stallAt >= 0 && pos == d.stallAt {
		<-d.stallCh
		return nil, nil, io.EOF
	}
	if d.failAt >= 0 && pos == d.failAt {
		return nil, nil, errors.New("decoder blew up")
	}
	if pos >= d.total {
		return nil, nil, io.EOF
	}
	pts := time.Duration(pos) * d.interval
	d.mu.Lock()
	d.pos++
	d.mu.Unlock()

	if d.audioRate > 0 {
		frames := int(time.Duration(d.audioRate) * d.interval / time.Second)
		return nil, &AudioChunk{
			Data:       make([]byte, frames*2*2),
			Channels:   2,
			SampleRate: d.audioRate,
			PTS:        pts,
		}, nil
	}
	if d.withAudio {
		d.audioPending = true
		d.audioPTS = pts
	}
	return &VideoFrame{
		Data:   make([]byte, d.frameWidth*4),
		Width:  d.frameWidth,
		Height: 1,
		PTS:    pts,
	}, nil, nil
}

func (d *fakeDemuxer) position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *fakeDemuxer) rewind(to time.Duration) error {
	idx := int(to / d.interval)
	if d.keyframe > 1 {
		idx = (idx / d.keyframe) * d.keyframe
	}
	if idx < 0 {
		idx = 0
	}
	if idx > d.total {
		idx = d.total
	}
	d.mu.Lock()
	d.rewinds++
	d.pos = idx
	d.mu.Unlock()
	d.audioPending = false
	return nil
}

func (d *fakeDemuxer) close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDemuxer) wasClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func fakeVideoSource(total int, interval time.Duration) *MediaSource {
	return &MediaSource{
		ID:               "test-video",
		VideoStreamIndex: 0,
		AudioStreamIndex: -1,
		Width:            4,
		Height:           1,
		FrameRateNum:     int(time.Second / interval),
		FrameRateDen:     1,
		Duration:         time.Duration(total) * interval,
		DurationKnown:    true,
	}
}

func fakeAVSource(total int, interval time.Duration) *MediaSource {
	src := fakeVideoSource(total, interval)
	src.ID = "test-av"
	src.AudioStreamIndex = 1
	src.SampleRate = 48000
	src.Channels = 2
	return src
}

func fakeAudioSource(total int, interval time.Duration, rate int) *MediaSource {
	return &MediaSource{
		ID:               "test-audio",
		VideoStreamIndex: -1,
		AudioStreamIndex: 0,
		SampleRate:       rate,
		Channels:         2,
		Duration:         time.Duration(total) * interval,
		DurationKnown:    true,
	}
}

func recvFrame(t *testing.T, ch <-chan *VideoFrame) *VideoFrame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

// recvFrameOfEpoch drains frames until one of the wanted generation shows up.
func recvFrameOfEpoch(t *testing.T, ch <-chan *VideoFrame, epoch uint64) *VideoFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-ch:
			if f.epoch == epoch {
				return f
			}
		case <-deadline:
			t.Fatal("timed out waiting for a frame of the target generation")
			return nil
		}
	}
}

func TestWorkerDeliversFramesInOrder(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(10, interval)
	w := newDecodeWorker(dec, fakeVideoSource(10, interval), DefaultConfig())
	w.start()

	for i := 0; i < 10; i++ {
		f := recvFrame(t, w.frames)
		if f.Seq != int64(i) {
			t.Errorf("frame %d has Seq %d", i, f.Seq)
		}
		if f.PTS != time.Duration(i)*interval {
			t.Errorf("frame %d has PTS %v", i, f.PTS)
		}
		if f.epoch != 0 {
			t.Errorf("frame %d carries epoch %d before any seek", i, f.epoch)
		}
	}

	deadline := time.Now().Add(time.Second)
	for !w.atEOF() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !w.atEOF() {
		t.Error("worker never reported end of stream")
	}

	w.stop()
	if !dec.wasClosed() {
		t.Error("demuxer not closed on stop")
	}
}

func TestWorkerStopIsIdempotentAndFinal(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(1000, interval)
	w := newDecodeWorker(dec, fakeVideoSource(1000, interval), DefaultConfig())
	w.start()
	recvFrame(t, w.frames)

	w.stop()
	w.stop()

	// buffered frames may remain, but nothing new arrives
	for len(w.frames) > 0 {
		<-w.frames
	}
	select {
	case f := <-w.frames:
		t.Errorf("frame %d arrived after stop", f.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorkerSeekLandsOnTargetFrame(t *testing.T) {
	t.Parallel()

	const interval = 40 * time.Millisecond
	dec := newFakeDemuxer(50, interval)
	// queue deep enough to hold every pre-seek frame, so the worker can
	// never wedge on a full channel while the test blocks in seek()
	cfg := DefaultConfig()
	cfg.FrameQueueDepth = 64
	w := newDecodeWorker(dec, fakeVideoSource(50, interval), cfg)
	w.start()
	defer w.stop()

	res := w.seek(325 * time.Millisecond)
	if res.err != nil || res.eos || res.superseded {
		t.Fatalf("seek result = %+v", res)
	}
	// the frame covering 325ms starts at 320ms
	if res.pts != 320*time.Millisecond {
		t.Errorf("seek landed at %v, want 320ms", res.pts)
	}

	f := recvFrameOfEpoch(t, w.frames, res.epoch)
	if f.PTS != res.pts {
		t.Errorf("delivered frame PTS %v does not match seek result %v", f.PTS, res.pts)
	}
	if f.Seq != 0 {
		t.Errorf("sequence index %d after seek, want 0", f.Seq)
	}
}

func TestWorkerSeekToStart(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(100, interval)
	cfg := DefaultConfig()
	cfg.FrameQueueDepth = 128
	w := newDecodeWorker(dec, fakeVideoSource(100, interval), cfg)
	w.start()
	defer w.stop()

	// negative target clamps to zero
	res := w.seek(-5 * time.Second)
	if res.err != nil || res.pts != 0 {
		t.Fatalf("seek to start gave %+v", res)
	}
	f := recvFrameOfEpoch(t, w.frames, res.epoch)
	if f.PTS != 0 || f.Seq != 0 {
		t.Errorf("first frame after restart = Seq %d PTS %v", f.Seq, f.PTS)
	}
}

func TestWorkerSeekPastEndIsEndOfStream(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(100, interval)
	src := fakeVideoSource(100, interval)
	w := newDecodeWorker(dec, src, DefaultConfig())
	w.start()
	defer w.stop()

	res := w.seek(src.Duration + time.Second)
	if res.err != nil || !res.eos {
		t.Fatalf("seek past end gave %+v", res)
	}
	if !w.atEOF() {
		t.Error("worker not at EOF after past-end seek")
	}
}

func TestWorkerSeekSupersededByNewerSeek(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(2000, interval)
	dec.readDelay = 5 * time.Millisecond
	dec.keyframe = 2000 // every rewind restarts the scan from zero
	cfg := DefaultConfig()
	cfg.FrameQueueDepth = 64
	w := newDecodeWorker(dec, fakeVideoSource(2000, interval), cfg)
	w.start()
	defer w.stop()

	first := make(chan seekResult, 1)
	go func() { first <- w.seek(5 * time.Second) }()
	time.Sleep(30 * time.Millisecond) // let the first scan get going
	second := w.seek(0)

	res := <-first
	if !res.superseded {
		t.Errorf("first seek result = %+v, want superseded", res)
	}
	if second.err != nil || second.superseded || second.pts != 0 {
		t.Errorf("second seek result = %+v", second)
	}
	if second.epoch <= res.epoch {
		t.Errorf("second epoch %d not newer than first %d", second.epoch, res.epoch)
	}
}

func TestWorkerSeekTimesOut(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(2000, interval)
	dec.readDelay = 10 * time.Millisecond
	dec.keyframe = 2000
	cfg := DefaultConfig()
	cfg.SeekTimeout = 80 * time.Millisecond
	cfg.FrameQueueDepth = 64
	w := newDecodeWorker(dec, fakeVideoSource(2000, interval), cfg)
	w.start()
	defer w.stop()

	res := w.seek(10 * time.Second)
	if res.err == nil || res.err.Kind != ErrSeekTimeout {
		t.Fatalf("slow seek gave %+v, want SeekTimeout", res)
	}

	// the worker survives a timed-out seek
	res = w.seek(0)
	if res.err != nil || res.pts != 0 {
		t.Errorf("follow-up seek gave %+v", res)
	}
}

func TestWorkerFatalErrorShutsDown(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(100, interval)
	dec.failAt = 3
	w := newDecodeWorker(dec, fakeVideoSource(100, interval), DefaultConfig())
	w.start()

	for i := 0; i < 3; i++ {
		recvFrame(t, w.frames)
	}
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after a fatal error")
	}
	if err := w.fatal.Load(); err == nil || err.Kind != ErrIoFailure {
		t.Errorf("fatal = %v, want IoFailure", err)
	}
	// commands after death report the stored failure instead of hanging
	res := w.seek(0)
	if res.err == nil {
		t.Error("seek on a dead worker returned no error")
	}
	if !dec.wasClosed() {
		t.Error("demuxer not closed on fatal exit")
	}
}

func TestWorkerAudioOnlySeek(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	dec := newFakeDemuxer(200, interval)
	dec.audioRate = 48000
	src := fakeAudioSource(200, interval, 48000)
	cfg := DefaultConfig()
	cfg.ChunkQueueDepth = 256
	w := newDecodeWorker(dec, src, cfg)
	w.start()
	defer w.stop()

	res := w.seek(500 * time.Millisecond)
	if res.err != nil || res.eos {
		t.Fatalf("audio seek gave %+v", res)
	}
	// the chunk covering the target completes the seek
	if res.pts != 500*time.Millisecond {
		t.Errorf("audio seek landed at %v, want 500ms", res.pts)
	}

	// drain stale pre-seek chunks; the first one of the new generation is
	// the chunk that completed the seek
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-w.chunks:
			if c.epoch != res.epoch {
				continue
			}
			if c.PTS != res.pts {
				t.Errorf("chunk PTS %v, want %v", c.PTS, res.pts)
			}
			return
		case <-deadline:
			t.Fatal("no chunk delivered after audio-only seek")
		}
	}
}
