package emvid

import (
	"encoding/binary"
	"testing"
	"time"
)

func chunkOf(value int16, frames, channels, rate int, pts time.Duration) *AudioChunk {
	data := make([]byte, frames*channels*2)
	for i := 0; i < frames*channels; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(value))
	}
	return &AudioChunk{Data: data, Channels: channels, SampleRate: rate, PTS: pts}
}

func readSamples(t *testing.T, p *audioPipeline, frames int) []int16 {
	t.Helper()
	buf := make([]byte, frames*deviceChannels*2)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read returned %d bytes, want %d", n, len(buf))
	}
	out := make([]int16, frames*deviceChannels)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return out
}

func TestRingWrapsAround(t *testing.T) {
	t.Parallel()

	r := newSampleRing()
	src := make([]int16, 1000)
	dst := make([]int16, 1000)
	for iter := 0; iter < 200; iter++ {
		for i := range src {
			src[i] = int16(iter)
		}
		if n := r.write(src); n != len(src) {
			t.Fatalf("iteration %d: wrote %d of %d", iter, n, len(src))
		}
		if n := r.read(dst); n != len(dst) {
			t.Fatalf("iteration %d: read %d of %d", iter, n, len(dst))
		}
		for i, s := range dst {
			if s != int16(iter) {
				t.Fatalf("iteration %d: sample %d corrupted to %d", iter, i, s)
			}
		}
	}
	if r.available() != 0 {
		t.Errorf("ring not empty after balanced writes and reads")
	}
}

func TestRingPartialWriteWhenFull(t *testing.T) {
	t.Parallel()

	r := newSampleRing()
	big := make([]int16, ringSize+100)
	if n := r.write(big); n != ringSize {
		t.Errorf("wrote %d into an empty ring of %d", n, ringSize)
	}
	if n := r.write(big); n != 0 {
		t.Errorf("wrote %d into a full ring", n)
	}
	r.flush()
	if r.available() != 0 {
		t.Errorf("available = %d after flush", r.available())
	}
}

func TestPipelineSilentWhileNotPlaying(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(deviceSampleRate, 2, clock, 1.0)
	p.pushChunk(chunkOf(5000, 512, 2, deviceSampleRate, 0))

	for _, s := range readSamples(t, p, 256) {
		if s != 0 {
			t.Fatalf("non-silence %d while not playing", s)
		}
	}
	if clock.Now() != 0 {
		t.Errorf("clock advanced to %v on silence", clock.Now())
	}
}

func TestPipelineDeliversAudioAndAdvancesClock(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(deviceSampleRate, 2, clock, 1.0)
	p.setPlaying(true)
	p.pushChunk(chunkOf(1000, 4800, 2, deviceSampleRate, 2*time.Second))

	samples := readSamples(t, p, 2400)
	for i, s := range samples {
		if s != 1000 {
			t.Fatalf("sample %d = %d, want 1000 at unity gain", i, s)
		}
	}
	// 2400 frames at the device rate is 50ms past the chunk's PTS
	want := 2*time.Second + 50*time.Millisecond
	if got := clock.Now(); got != want {
		t.Errorf("clock = %v after pull, want %v", got, want)
	}
}

func TestPipelineVolumeIsPerceptual(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(deviceSampleRate, 2, clock, 1.0)
	p.setPlaying(true)
	p.setVolume(0.5) // cubic curve: gain 0.125
	p.pushChunk(chunkOf(8000, 512, 2, deviceSampleRate, 0))

	for i, s := range readSamples(t, p, 128) {
		if s < 990 || s > 1010 {
			t.Fatalf("sample %d = %d, want about 1000", i, s)
		}
	}
	if got := p.volume(); got < 0.49 || got > 0.51 {
		t.Errorf("volume() = %v, want 0.5", got)
	}
}

func TestPipelineVolumeClamps(t *testing.T) {
	t.Parallel()

	p := newAudioPipeline(deviceSampleRate, 2, newPlaybackClock(false), 1.0)
	p.setVolume(7.0)
	if got := p.volume(); got != 1.5 {
		t.Errorf("volume clamped to %v, want 1.5", got)
	}
	p.setVolume(-1)
	if got := p.volume(); got != 0 {
		t.Errorf("volume clamped to %v, want 0", got)
	}
}

func TestPipelineMuteZeroesOutput(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(deviceSampleRate, 2, clock, 1.0)
	p.setPlaying(true)
	p.setMuted(true)
	p.pushChunk(chunkOf(8000, 512, 2, deviceSampleRate, 0))

	for _, s := range readSamples(t, p, 128) {
		if s != 0 {
			t.Fatalf("muted output leaked sample %d", s)
		}
	}
	// muting silences but does not stop consumption, so the clock runs
	if clock.Now() == 0 {
		t.Error("clock frozen while muted")
	}
}

func TestPipelineUnderrunLatch(t *testing.T) {
	t.Parallel()

	p := newAudioPipeline(deviceSampleRate, 2, newPlaybackClock(false), 1.0)
	p.setPlaying(true)
	p.pushChunk(chunkOf(1000, 64, 2, deviceSampleRate, 0))

	// ask for more than is buffered; the tail pads with silence
	samples := readSamples(t, p, 256)
	for i := 0; i < 64*deviceChannels; i++ {
		if samples[i] != 1000 {
			t.Fatalf("buffered sample %d = %d", i, samples[i])
		}
	}
	for i := 64 * deviceChannels; i < len(samples); i++ {
		if samples[i] != 0 {
			t.Fatalf("padding sample %d = %d, want silence", i, samples[i])
		}
	}
	if !p.takeUnderrun() {
		t.Error("underrun not latched")
	}
	if p.takeUnderrun() {
		t.Error("underrun latch not cleared by take")
	}
}

func TestPipelineNoUnderrunBeforeFirstChunk(t *testing.T) {
	t.Parallel()

	p := newAudioPipeline(deviceSampleRate, 2, newPlaybackClock(false), 1.0)
	p.setPlaying(true)
	readSamples(t, p, 256)
	if p.takeUnderrun() {
		t.Error("underrun latched before any audio was anchored")
	}
}

func TestPipelineFlushDropsAudioAndAnchor(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(deviceSampleRate, 2, clock, 1.0)
	p.setPlaying(true)
	p.pushChunk(chunkOf(1000, 1024, 2, deviceSampleRate, 0))
	p.flush()

	if p.buffered() != 0 {
		t.Errorf("buffered = %v after flush", p.buffered())
	}
	// post-flush reads are shortfalls, but no underrun is signaled until
	// a new chunk re-anchors the stream
	readSamples(t, p, 256)
	if p.takeUnderrun() {
		t.Error("underrun latched from flushed state")
	}

	// the next chunk re-anchors the clock at its own PTS
	p.pushChunk(chunkOf(1000, 4800, 2, deviceSampleRate, 9*time.Second))
	readSamples(t, p, 480)
	want := 9*time.Second + 10*time.Millisecond
	if got := clock.Now(); got != want {
		t.Errorf("clock = %v after re-anchor, want %v", got, want)
	}
}

func TestPipelineResamplesForeignRate(t *testing.T) {
	t.Parallel()

	clock := newPlaybackClock(false)
	p := newAudioPipeline(24000, 2, clock, 1.0)
	p.setPlaying(true)
	// 240 input frames at 24k become about 480 device frames
	p.pushChunk(chunkOf(2000, 240, 2, 24000, 0))

	buffered := p.buffered()
	if buffered < 9*time.Millisecond || buffered > 11*time.Millisecond {
		t.Errorf("buffered %v after upsampling 10ms of audio", buffered)
	}
	for i, s := range readSamples(t, p, 128) {
		if s != 2000 {
			t.Fatalf("sample %d distorted to %d by resampling", i, s)
		}
	}
}

func TestPipelineDownmixesMono(t *testing.T) {
	t.Parallel()

	p := newAudioPipeline(deviceSampleRate, 1, newPlaybackClock(false), 1.0)
	p.setPlaying(true)
	p.pushChunk(chunkOf(3000, 256, 1, deviceSampleRate, 0))

	samples := readSamples(t, p, 128)
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != 3000 || samples[i+1] != 3000 {
			t.Fatalf("mono not duplicated at frame %d: %d/%d", i/2, samples[i], samples[i+1])
		}
	}
}

func TestPipelineClosedPushReturns(t *testing.T) {
	t.Parallel()

	p := newAudioPipeline(deviceSampleRate, 2, newPlaybackClock(false), 1.0)
	p.close()

	done := make(chan struct{})
	go func() {
		// ring fills up; a closed pipeline must not block the producer
		for i := 0; i < 40; i++ {
			p.pushChunk(chunkOf(1, 4096, 2, deviceSampleRate, 0))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pushChunk blocked on a closed pipeline")
	}
}
