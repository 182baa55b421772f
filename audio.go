package emvid

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"
)

// Device output format. The pipeline normalizes every source to this layout
// so a single oto context (one per process) serves all media.
const (
	deviceSampleRate = 48000
	deviceChannels   = 2
)

// ringSize is the pipeline buffer in device samples (power of two),
// about 0.7s of stereo audio. Sized so decode bursts don't stall while the
// pull side still exerts backpressure through the chunk channel.
const ringSize = 1 << 16

// sampleRing is a single-producer single-consumer lock-free ring of int16
// samples. The producer is the chunk feeder goroutine, the consumer is the
// audio device's pull callback, which must never block.
type sampleRing struct {
	buf  []int16
	head atomic.Uint64 // read position, monotonically increasing
	tail atomic.Uint64 // write position, monotonically increasing
}

func newSampleRing() *sampleRing {
	return &sampleRing{buf: make([]int16, ringSize)}
}

func (r *sampleRing) available() int { return int(r.tail.Load() - r.head.Load()) }

func (r *sampleRing) free() int { return ringSize - r.available() }

// write copies as many samples as currently fit and returns the count.
func (r *sampleRing) write(src []int16) int {
	n := min(len(src), r.free())
	tail := r.tail.Load()
	for i := 0; i < n; i++ {
		r.buf[(tail+uint64(i))&(ringSize-1)] = src[i]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

// read copies up to len(dst) samples and returns the count. Never blocks.
func (r *sampleRing) read(dst []int16) int {
	n := min(len(dst), r.available())
	head := r.head.Load()
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(head+uint64(i))&(ringSize-1)]
	}
	r.head.Store(head + uint64(n))
	return n
}

// flush discards buffered samples. Called from the control side on seek;
// the monotonic indices keep a concurrent read harmless.
func (r *sampleRing) flush() {
	r.head.Store(r.tail.Load())
}

// audioPipeline converts decoded chunks to the device format and serves the
// device's pull callback. It owns the authoritative playback clock while an
// audio track exists: every successful pull re-anchors the clock at the PTS
// of the last consumed sample.
//
// The pull path (Read) is the hard real-time boundary: no locks shared with
// control threads, no allocation after construction, silence on underrun.
type audioPipeline struct {
	ring  *sampleRing
	res   *resampler
	clock *playbackClock

	srcRate     int
	srcChannels int

	gainBits   atomic.Uint64 // float64 bits of the effective multiplier
	minEpoch   atomic.Uint64 // chunks from older seek generations are dropped
	muted      atomic.Bool
	playing    atomic.Bool
	closed     atomic.Bool
	needAnchor atomic.Bool
	underrun   atomic.Bool
	readPTS    atomic.Int64 // nanoseconds, PTS at the ring's read head
	anchored   atomic.Bool

	pullBuf []int16 // preallocated pull scratch, consumer side only
}

func newAudioPipeline(srcRate, srcChannels int, clock *playbackClock, speed float64) *audioPipeline {
	p := &audioPipeline{
		ring:        newSampleRing(),
		res:         newResampler(srcRate, deviceSampleRate, deviceChannels, speed),
		clock:       clock,
		srcRate:     srcRate,
		srcChannels: srcChannels,
		pullBuf:     make([]int16, 8192),
	}
	p.setVolume(1.0)
	p.needAnchor.Store(true)
	return p
}

// pushChunk converts a chunk lazily (downmix, resample) and enqueues it,
// blocking while the ring is full. Producer side only; never called from
// the device callback.
func (p *audioPipeline) pushChunk(chunk *AudioChunk) {
	samples := decodeSamples(chunk.Data)
	stereo := downmixToStereo(samples, chunk.Channels)
	out := p.res.resample(stereo)
	if len(out) == 0 {
		return
	}
	if p.needAnchor.Swap(false) {
		p.readPTS.Store(int64(chunk.PTS))
		p.anchored.Store(true)
	}
	for len(out) > 0 {
		n := p.ring.write(out)
		out = out[n:]
		if len(out) == 0 {
			break
		}
		if p.closed.Load() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Read implements the device pull. It serves what the ring holds, pads the
// rest with silence, applies the volume multiplier per sample, and advances
// the playback clock by exactly the media time it consumed.
func (p *audioPipeline) Read(buf []byte) (int, error) {
	// serve whole frames only
	buf = buf[:len(buf)&^(2*deviceChannels-1)]
	if len(buf) == 0 {
		return 0, nil
	}

	if !p.playing.Load() {
		clearBytes(buf)
		return len(buf), nil
	}

	want := len(buf) / 2
	scratch := p.pullBuf
	if want > len(scratch) {
		want = len(scratch)
		buf = buf[:want*2]
	}
	got := p.ring.read(scratch[:want])

	gain := p.gain()
	for i := 0; i < got; i++ {
		s := float64(scratch[i]) * gain
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(clampSample(s)))
	}
	clearBytes(buf[got*2:])

	if got > 0 {
		frames := got / deviceChannels
		wall := time.Duration(frames) * time.Second / deviceSampleRate
		pts := time.Duration(p.readPTS.Load()) + UnscaleBySpeed(wall, p.clock.Speed())
		p.readPTS.Store(int64(pts))
		p.clock.Update(pts)
	}
	if got < want && p.anchored.Load() {
		p.underrun.Store(true)
	}
	return len(buf), nil
}

// setVolume stores the effective gain for a 0..1.5 volume setting. The curve
// is cubic, which tracks perceived loudness far better than a linear scale.
func (p *audioPipeline) setVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1.5 {
		v = 1.5
	}
	p.gainBits.Store(math.Float64bits(v * v * v))
}

func (p *audioPipeline) volume() float64 {
	g := math.Float64frombits(p.gainBits.Load())
	return math.Cbrt(g)
}

func (p *audioPipeline) setMuted(m bool) { p.muted.Store(m) }

func (p *audioPipeline) isMuted() bool { return p.muted.Load() }

func (p *audioPipeline) setPlaying(b bool) { p.playing.Store(b) }

func (p *audioPipeline) gain() float64 {
	if p.muted.Load() {
		return 0
	}
	return math.Float64frombits(p.gainBits.Load())
}

// setSpeed folds the playback speed into the resample ratio. Producer side.
func (p *audioPipeline) setSpeed(speed float64) {
	p.res.setRatio(p.srcRate, deviceSampleRate, clampSpeed(speed))
}

// flush discards buffered audio and requires a new PTS anchor before the
// clock advances again. Called on seek and source teardown.
func (p *audioPipeline) flush() {
	p.anchored.Store(false)
	p.needAnchor.Store(true)
	p.ring.flush()
	p.res.reset()
	p.underrun.Store(false)
}

func (p *audioPipeline) close() {
	p.closed.Store(true)
	p.playing.Store(false)
}

// buffered returns how much device-time audio is queued.
func (p *audioPipeline) buffered() time.Duration {
	frames := p.ring.available() / deviceChannels
	return time.Duration(frames) * time.Second / deviceSampleRate
}

// takeUnderrun returns and clears the underrun latch.
func (p *audioPipeline) takeUnderrun() bool {
	return p.underrun.Swap(false)
}

func decodeSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
