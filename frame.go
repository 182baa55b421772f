package emvid

import "time"

// VideoFrame is a decoded video frame with an exclusively owned pixel buffer.
// Ownership transfers along the channel from the decode worker to whichever
// component consumes it (frame cache or presenter); no two components hold
// the same frame at once.
type VideoFrame struct {
	// Data holds the RGBA pixels, 4 bytes per pixel, row-major.
	Data   []byte
	Width  int
	Height int

	// PTS is the presentation offset from the start of the source.
	PTS time.Duration

	// Seq is the display-order index of the frame. Strictly increasing
	// within one open source; resets to 0 after a seek.
	Seq int64

	// epoch identifies the seek generation the frame belongs to. Frames
	// carrying a stale epoch are discarded by the consumer.
	epoch uint64
}

// ByteSize returns the resident size of the frame's pixel buffer.
func (f *VideoFrame) ByteSize() int { return len(f.Data) }

// AudioChunk is a decoded run of interleaved signed 16-bit little-endian
// samples at the source's native rate and channel layout.
type AudioChunk struct {
	Data       []byte
	Channels   int
	SampleRate int

	// PTS is the presentation offset of the first sample in the chunk.
	PTS time.Duration

	epoch uint64
}

// SampleCount returns the number of per-channel sample frames in the chunk.
func (c *AudioChunk) SampleCount() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Data) / 2 / c.Channels
}

// Duration derives the chunk's play time from its sample count and rate.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.SampleCount()) * time.Second / time.Duration(c.SampleRate)
}
